package mockapi

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/devdazzlee/sphire-client/pkg/types"
)

// userRecord pairs the public user with its credential hash.
type userRecord struct {
	user         types.User
	passwordHash []byte
}

// state is the whole backend dataset, guarded by one mutex. Good enough for
// a dev server; nothing here survives a restart.
type state struct {
	mu       sync.Mutex
	users    map[string]*userRecord // keyed by lowercased email
	products []types.Product
	carts    map[uuid.UUID][]types.CartLine // keyed by user id
	orders   map[uuid.UUID][]types.Order
}

func newState() *state {
	return &state{
		users:  map[string]*userRecord{},
		carts:  map[uuid.UUID][]types.CartLine{},
		orders: map[uuid.UUID][]types.Order{},
	}
}

func (s *state) addUser(name, email, password, role string) (types.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}
	user := types.User{ID: uuid.New(), Name: name, Email: strings.ToLower(email), Role: role}
	rec := &userRecord{user: user, passwordHash: hash}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Email] = rec
	return user, nil
}

func (s *state) findUser(email string) (*userRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[strings.ToLower(email)]
	return rec, ok
}

func (s *state) seedDemoCatalog() {
	price := func(v string) decimal.Decimal {
		d, _ := decimal.NewFromString(v)
		return d
	}
	orig := func(v string) *decimal.Decimal {
		d := price(v)
		return &d
	}
	products := []types.Product{
		{ID: uuid.New(), Name: "Ceramic Mug", Description: "Stoneware, 350ml", Price: price("12.50"), Category: "kitchen", Subcategory: "drinkware", Stock: 120, Rating: price("4.6"), ReviewCount: 38},
		{ID: uuid.New(), Name: "Linen Apron", Price: price("29.00"), OriginalPrice: orig("39.00"), Category: "kitchen", Subcategory: "textiles", Stock: 45, Rating: price("4.8"), ReviewCount: 12},
		{ID: uuid.New(), Name: "Walnut Cutting Board", Price: price("54.00"), Category: "kitchen", Subcategory: "boards", Stock: 18, Rating: price("4.9"), ReviewCount: 51},
		{ID: uuid.New(), Name: "Desk Lamp", Price: price("41.25"), Category: "office", Subcategory: "lighting", Stock: 60, Rating: price("4.2"), ReviewCount: 27},
		{ID: uuid.New(), Name: "Notebook Set", Price: price("9.90"), OriginalPrice: orig("14.90"), Category: "office", Subcategory: "paper", Stock: 300, Rating: price("4.4"), ReviewCount: 96},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = products
}
