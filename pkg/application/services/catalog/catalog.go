package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/vsinha/requisition/pkg/domain/entities"
	"github.com/vsinha/requisition/pkg/domain/repositories"
)

var (
	// ErrOutOfStock refuses adding a variant with no stock to the cart
	ErrOutOfStock = errors.New("variant is out of stock")
	// ErrInvalidQuantity refuses a non-positive quantity from item browsing
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrUnknownVariant means the id is not in the current stock list
	ErrUnknownVariant = errors.New("variant not in stock list")
)

// Session supplies the token for protected calls and accepts invalidation
type Session interface {
	Token() string
	Invalidate(ctx context.Context, reason string)
}

// CartAdder is the cart operation browsing feeds into
type CartAdder interface {
	AddItem(ctx context.Context, variant entities.Variant, quantity entities.Quantity) (entities.Cart, error)
}

// Service lists stock and turns browsing selections into cart lines
type Service struct {
	backend repositories.InventoryBackend
	session Session
	cart    CartAdder
	log     *logrus.Entry

	mu     sync.Mutex
	levels []entities.StockLevel
}

// NewService creates a catalog service
func NewService(backend repositories.InventoryBackend, session Session, cart CartAdder, log *logrus.Entry) *Service {
	return &Service{
		backend: backend,
		session: session,
		cart:    cart,
		log:     log,
	}
}

// ListStock fetches current stock levels. On failure it returns no levels
// and the error.
func (s *Service) ListStock(ctx context.Context) ([]entities.StockLevel, error) {
	levels, err := s.backend.StockLevels(ctx, s.session.Token())
	if err != nil {
		if repositories.IsAuthFailure(err) {
			s.session.Invalidate(ctx, "stock levels refused: "+err.Error())
		}
		return []entities.StockLevel{}, fmt.Errorf("failed to list stock: %w", err)
	}

	s.mu.Lock()
	s.levels = append([]entities.StockLevel(nil), levels...)
	s.mu.Unlock()

	return levels, nil
}

// AddToCart adds quantity of an in-stock variant to the cart
func (s *Service) AddToCart(ctx context.Context, level entities.StockLevel, quantity entities.Quantity) (entities.Cart, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidQuantity, quantity)
	}
	if !level.InStock() {
		return nil, fmt.Errorf("%s: %w", level.Variant.DisplayName(), ErrOutOfStock)
	}
	if quantity > level.TotalQuantity {
		s.log.WithFields(logrus.Fields{
			"variant_id": level.Variant.ID,
			"requested":  quantity,
			"available":  level.TotalQuantity,
		}).Warn("requested quantity exceeds current stock")
	}
	return s.cart.AddItem(ctx, level.Variant, quantity)
}

// FindVariant resolves id against the cached stock list, fetching it first
// when nothing has been listed yet
func (s *Service) FindVariant(ctx context.Context, id entities.VariantID) (entities.StockLevel, error) {
	s.mu.Lock()
	levels := s.levels
	s.mu.Unlock()

	if levels == nil {
		fetched, err := s.ListStock(ctx)
		if err != nil {
			return entities.StockLevel{}, err
		}
		levels = fetched
	}

	for _, level := range levels {
		if level.Variant.ID == id {
			return level, nil
		}
	}
	return entities.StockLevel{}, fmt.Errorf("variant %d: %w", id, ErrUnknownVariant)
}

// Filter returns levels whose code, type or name contains query
// (case-insensitive), ordered by type then display name
func Filter(levels []entities.StockLevel, query string) []entities.StockLevel {
	query = strings.ToLower(strings.TrimSpace(query))
	matched := make([]entities.StockLevel, 0, len(levels))
	for _, level := range levels {
		v := level.Variant
		haystack := strings.ToLower(strings.Join([]string{v.FullCode, v.TypeName, v.Name, v.VariantName}, " "))
		if query == "" || strings.Contains(haystack, query) {
			matched = append(matched, level)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i].Variant, matched[j].Variant
		if a.TypeName != b.TypeName {
			return a.TypeName < b.TypeName
		}
		return a.DisplayName() < b.DisplayName()
	})
	return matched
}
