// shopctl is a command-line storefront client: it drives the Sphire API
// through the same stores a UI would use, with state persisted between runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/devdazzlee/sphire-client/internal/auth"
	"github.com/devdazzlee/sphire-client/internal/cart"
	"github.com/devdazzlee/sphire-client/internal/storage"
	"github.com/devdazzlee/sphire-client/internal/token"
	"github.com/devdazzlee/sphire-client/internal/wishlist"
	"github.com/devdazzlee/sphire-client/pkg/api"
	"github.com/devdazzlee/sphire-client/pkg/config"
	"github.com/devdazzlee/sphire-client/pkg/logger"
)

const usage = `usage: shopctl <command> [args]

  login <email> <password>        start a session
  register <name> <email> <pass>  create an account and sign in
  logout                          end the session
  whoami                          show the current session

  products [-search s] [-category c] [-page n] [-limit n]
  product <id>
  categories

  cart show | sync | clear
  cart add <productID> [qty]
  cart set <productID> <qty>
  cart rm <productID>

  wish show | clear
  wish add <productID>
  wish rm <productID>

  orders place | list
  orders show <id>
  orders cancel <id>
`

type app struct {
	cfg      *config.Config
	logg     *logger.Logger
	api      *api.Client
	tokens   *token.Manager
	authSt   *auth.Store
	cartSt   *cart.Store
	wishSt   *wishlist.Store
	shutdown func()
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	logg := logger.New(logger.Options{ServiceName: "shopctl"})
	if err := godotenv.Load(); err != nil {
		logg.Debug(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "shopctl",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := context.Background()
	a, err := bootstrap(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap client", err)
		os.Exit(1)
	}
	defer a.shutdown()

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func bootstrap(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*app, error) {
	snapshots, err := storage.Open(ctx, cfg.Storage, cfg.Redis, logg)
	if err != nil {
		return nil, err
	}

	tokens, err := token.NewManager(snapshots)
	if err != nil {
		return nil, err
	}
	if err := tokens.Load(ctx); err != nil {
		return nil, err
	}

	apiClient, err := api.New(cfg.API, logg)
	if err != nil {
		return nil, err
	}

	remote, err := cart.NewRemoteBackend(apiClient, tokens)
	if err != nil {
		return nil, err
	}
	cartStore, err := cart.NewStore(cart.StoreParams{
		Tokens:    tokens,
		Remote:    remote,
		Snapshots: snapshots,
		Logger:    logg,
	})
	if err != nil {
		return nil, err
	}
	if err := cartStore.Hydrate(ctx); err != nil {
		return nil, err
	}

	wishStore, err := wishlist.NewStore(wishlist.StoreParams{Snapshots: snapshots, Logger: logg})
	if err != nil {
		return nil, err
	}
	if err := wishStore.Hydrate(ctx); err != nil {
		return nil, err
	}

	authStore, err := auth.NewStore(auth.StoreParams{
		API:          apiClient,
		Tokens:       tokens,
		Logger:       logg,
		RequireAdmin: cfg.Auth.RequireAdmin,
	})
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		logg:   logg,
		api:    apiClient,
		tokens: tokens,
		authSt: authStore,
		cartSt: cartStore,
		wishSt: wishStore,
		shutdown: func() {
			if err := snapshots.Close(); err != nil {
				logg.Error(ctx, "error closing snapshot store", err)
			}
		},
	}, nil
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.cmdLogin(ctx, args)
	case "register":
		return a.cmdRegister(ctx, args)
	case "logout":
		res := a.authSt.Logout(ctx)
		return resultErr(res.Success, res.Message)
	case "whoami":
		return a.cmdWhoami(ctx)
	case "products":
		return a.cmdProducts(ctx, args)
	case "product":
		return a.cmdProduct(ctx, args)
	case "categories":
		return a.cmdCategories(ctx)
	case "cart":
		return a.cmdCart(ctx, args)
	case "wish":
		return a.cmdWish(ctx, args)
	case "orders":
		return a.cmdOrders(ctx, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	}
	fmt.Fprint(os.Stderr, usage)
	return fmt.Errorf("unknown command %q", command)
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: shopctl login <email> <password>")
	}
	res := a.authSt.Login(ctx, api.LoginInput{Email: args[0], Password: args[1]})
	if !res.Success {
		return fmt.Errorf("%s", res.Message)
	}
	// server cart wins over anything added while anonymous
	if sync := a.cartSt.SyncWithServer(ctx); !sync.Success {
		fmt.Println("warning: cart sync failed:", sync.Message)
	}
	fmt.Println("logged in as", args[0])
	return nil
}

func (a *app) cmdRegister(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: shopctl register <name> <email> <password>")
	}
	res := a.authSt.Register(ctx, api.RegisterInput{Name: args[0], Email: args[1], Password: args[2]})
	if !res.Success {
		return fmt.Errorf("%s", res.Message)
	}
	fmt.Println("registered and logged in as", args[1])
	return nil
}

func (a *app) cmdWhoami(ctx context.Context) error {
	if err := a.authSt.Bootstrap(ctx); err != nil {
		return err
	}
	state := a.authSt.State()
	if !state.IsAuthenticated {
		fmt.Println("anonymous")
		return nil
	}
	fmt.Printf("%s <%s> (%s)\n", state.User.Name, state.User.Email, state.User.Role)
	if claims, err := token.Peek(a.tokens.Token()); err == nil && claims.ExpiresAt != nil {
		fmt.Println("token expires", claims.ExpiresAt.Time.Local())
	}
	return nil
}

func (a *app) cmdProducts(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("products", flag.ContinueOnError)
	search := fs.String("search", "", "substring match on the product name")
	category := fs.String("category", "", "filter by category")
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 20, "page size")
	if err := fs.Parse(args); err != nil {
		return err
	}

	result, err := a.api.ListProducts(ctx, api.ListProductsParams{
		Search:   *search,
		Category: *category,
		Page:     *page,
		Limit:    *limit,
	})
	if err != nil {
		return err
	}
	for _, p := range result.Products {
		fmt.Printf("%s  %-30s %8s  %s (stock %d)\n", p.ID, p.Name, p.Price, p.Category, p.Stock)
	}
	fmt.Printf("page %d of %d products\n", result.Page, result.Total)
	return nil
}

func (a *app) cmdProduct(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: shopctl product <id>")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid product id: %w", err)
	}
	p, err := a.api.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n%s\nprice: %s", p.Name, p.Description, p.Price)
	if p.OriginalPrice != nil {
		fmt.Printf(" (was %s)", *p.OriginalPrice)
	}
	fmt.Printf("\nrating: %s over %d reviews\nstock: %d\n", p.Rating, p.ReviewCount, p.Stock)
	return nil
}

func (a *app) cmdCategories(ctx context.Context) error {
	categories, err := a.api.ListCategories(ctx)
	if err != nil {
		return err
	}
	for _, c := range categories {
		fmt.Println(c)
	}
	return nil
}

func (a *app) cmdCart(ctx context.Context, args []string) error {
	if len(args) == 0 {
		args = []string{"show"}
	}
	switch args[0] {
	case "show":
		return a.printCart()
	case "sync":
		return resultErrFrom(a.cartSt.SyncWithServer(ctx), a.printCart)
	case "clear":
		return resultErrFrom(a.cartSt.ClearCart(ctx), a.printCart)
	case "add":
		if len(args) < 2 {
			return fmt.Errorf("usage: shopctl cart add <productID> [qty]")
		}
		id, err := uuid.Parse(args[1])
		if err != nil {
			return fmt.Errorf("invalid product id: %w", err)
		}
		qty := 1
		if len(args) == 3 {
			if qty, err = strconv.Atoi(args[2]); err != nil {
				return fmt.Errorf("invalid quantity: %w", err)
			}
		}
		p, err := a.api.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		return resultErrFrom(a.cartSt.AddItemWithQuantity(ctx, *p, qty), a.printCart)
	case "set":
		if len(args) != 3 {
			return fmt.Errorf("usage: shopctl cart set <productID> <qty>")
		}
		id, err := uuid.Parse(args[1])
		if err != nil {
			return fmt.Errorf("invalid product id: %w", err)
		}
		qty, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid quantity: %w", err)
		}
		return resultErrFrom(a.cartSt.UpdateQuantity(ctx, id, qty), a.printCart)
	case "rm":
		if len(args) != 2 {
			return fmt.Errorf("usage: shopctl cart rm <productID>")
		}
		id, err := uuid.Parse(args[1])
		if err != nil {
			return fmt.Errorf("invalid product id: %w", err)
		}
		return resultErrFrom(a.cartSt.RemoveItem(ctx, id), a.printCart)
	}
	return fmt.Errorf("unknown cart subcommand %q", args[0])
}

func (a *app) printCart() error {
	state := a.cartSt.State()
	if len(state.Lines) == 0 {
		fmt.Println("cart is empty")
		return nil
	}
	for _, line := range state.Lines {
		fmt.Printf("%s  %-30s x%-3d %8s\n", line.Product.ID, line.Product.Name, line.Quantity, line.Total())
	}
	fmt.Printf("%d items, total %s\n", state.ItemCount, state.Total)
	return nil
}

func (a *app) cmdWish(ctx context.Context, args []string) error {
	if len(args) == 0 {
		args = []string{"show"}
	}
	switch args[0] {
	case "show":
		entries := a.wishSt.Entries()
		if len(entries) == 0 {
			fmt.Println("wishlist is empty")
			return nil
		}
		for _, entry := range entries {
			fmt.Printf("%s  %-30s %8s  added %s\n", entry.Product.ID, entry.Product.Name, entry.Product.Price, entry.AddedAt.Format("2006-01-02"))
		}
		return nil
	case "clear":
		return a.wishSt.Clear(ctx)
	case "add":
		if len(args) != 2 {
			return fmt.Errorf("usage: shopctl wish add <productID>")
		}
		id, err := uuid.Parse(args[1])
		if err != nil {
			return fmt.Errorf("invalid product id: %w", err)
		}
		p, err := a.api.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		return a.wishSt.Add(ctx, *p)
	case "rm":
		if len(args) != 2 {
			return fmt.Errorf("usage: shopctl wish rm <productID>")
		}
		id, err := uuid.Parse(args[1])
		if err != nil {
			return fmt.Errorf("invalid product id: %w", err)
		}
		return a.wishSt.Remove(ctx, id)
	}
	return fmt.Errorf("unknown wish subcommand %q", args[0])
}

func (a *app) cmdOrders(ctx context.Context, args []string) error {
	if len(args) == 0 {
		args = []string{"list"}
	}
	tok := a.tokens.Token()
	if tok == "" {
		return fmt.Errorf("orders require a session, run shopctl login first")
	}
	switch args[0] {
	case "place":
		order, err := a.api.CreateOrder(ctx, tok, api.CreateOrderInput{})
		if err != nil {
			return err
		}
		// the server builds the order from the server cart and empties it
		if sync := a.cartSt.SyncWithServer(ctx); !sync.Success {
			fmt.Println("warning: cart sync failed:", sync.Message)
		}
		fmt.Printf("order %s placed, total %s\n", order.ID, order.Total)
		return nil
	case "list":
		orders, err := a.api.ListOrders(ctx, tok)
		if err != nil {
			return err
		}
		if len(orders) == 0 {
			fmt.Println("no orders")
			return nil
		}
		for _, order := range orders {
			fmt.Printf("%s  %-10s %8s  %s\n", order.ID, order.Status, order.Total, order.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	case "show":
		if len(args) != 2 {
			return fmt.Errorf("usage: shopctl orders show <id>")
		}
		id, err := uuid.Parse(args[1])
		if err != nil {
			return fmt.Errorf("invalid order id: %w", err)
		}
		order, err := a.api.GetOrder(ctx, tok, id)
		if err != nil {
			return err
		}
		fmt.Printf("order %s (%s)\n", order.ID, order.Status)
		for _, item := range order.Items {
			fmt.Printf("  %-30s x%-3d %8s\n", item.Name, item.Quantity, item.Price)
		}
		fmt.Println("total", order.Total)
		return nil
	case "cancel":
		if len(args) != 2 {
			return fmt.Errorf("usage: shopctl orders cancel <id>")
		}
		id, err := uuid.Parse(args[1])
		if err != nil {
			return fmt.Errorf("invalid order id: %w", err)
		}
		order, err := a.api.CancelOrder(ctx, tok, id)
		if err != nil {
			return err
		}
		fmt.Printf("order %s is now %s\n", order.ID, order.Status)
		return nil
	}
	return fmt.Errorf("unknown orders subcommand %q", args[0])
}

func resultErr(success bool, message string) error {
	if success {
		return nil
	}
	return fmt.Errorf("%s", message)
}

func resultErrFrom(res cart.Result, after func() error) error {
	if !res.Success {
		return fmt.Errorf("%s", res.Message)
	}
	return after()
}
