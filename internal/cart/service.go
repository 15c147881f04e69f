package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/VanderajLS/metier-backend/internal/apperr"
	"github.com/VanderajLS/metier-backend/internal/catalog"
)

// CatalogReader is the read-only slice of the catalog the cart validates
// against.
type CatalogReader interface {
	Get(ctx context.Context, productID string) (catalog.Product, error)
}

// Service owns the session-keyed basket: validation against the catalog plus
// the merge-on-add and quantity rules.
type Service struct {
	repo    Repository
	catalog CatalogReader
}

func NewService(repo Repository, cat CatalogReader) *Service {
	return &Service{repo: repo, catalog: cat}
}

// Add puts quantity units of a product into the session's cart, merging into
// an existing line if the product is already present. The unit price is
// captured at this moment.
func (s *Service) Add(ctx context.Context, sessionID, productID string, quantity int) (*View, error) {
	if productID == "" {
		return nil, apperr.Validation("product_id")
	}
	if quantity < 1 {
		return nil, apperr.Validationf("quantity", "quantity must be at least 1")
	}

	p, err := s.lookupProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.InStock() {
		return nil, apperr.OutOfStock(p.Title)
	}

	c, err := s.repo.GetOrCreate(ctx, sessionID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	if existing := c.findItemByProduct(productID); existing != nil {
		merged := existing.Quantity + quantity
		if !p.CanFulfill(merged) {
			return nil, apperr.InsufficientStock(p.Title, p.OnHand)
		}
		if err := s.repo.UpdateItemQuantity(ctx, existing.ID, merged); err != nil {
			return nil, apperr.Internal(err)
		}
	} else {
		if !p.CanFulfill(quantity) {
			return nil, apperr.InsufficientStock(p.Title, p.OnHand)
		}
		it := &Item{
			CartID:    c.ID,
			ProductID: productID,
			Quantity:  quantity,
			Price:     p.Price,
		}
		if err := s.repo.InsertItem(ctx, it); err != nil {
			return nil, apperr.Internal(err)
		}
	}

	if err := s.repo.Touch(ctx, c.ID); err != nil {
		return nil, apperr.Internal(err)
	}
	return s.View(ctx, sessionID)
}

// UpdateQuantity sets a line's quantity. Zero removes the line; anything else
// is re-validated against current stock.
func (s *Service) UpdateQuantity(ctx context.Context, sessionID, itemID string, quantity int) (*View, error) {
	if quantity < 0 {
		return nil, apperr.Validationf("quantity", "quantity must be non-negative")
	}

	c, it, err := s.findItem(ctx, sessionID, itemID)
	if err != nil {
		return nil, err
	}

	if quantity == 0 {
		if err := s.repo.DeleteItem(ctx, it.ID); err != nil {
			return nil, apperr.Internal(err)
		}
	} else {
		p, err := s.lookupProduct(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		if !p.CanFulfill(quantity) {
			return nil, apperr.InsufficientStock(p.Title, p.OnHand)
		}
		if err := s.repo.UpdateItemQuantity(ctx, it.ID, quantity); err != nil {
			return nil, apperr.Internal(err)
		}
	}

	if err := s.repo.Touch(ctx, c.ID); err != nil {
		return nil, apperr.Internal(err)
	}
	return s.View(ctx, sessionID)
}

func (s *Service) Remove(ctx context.Context, sessionID, itemID string) (*View, error) {
	c, it, err := s.findItem(ctx, sessionID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteItem(ctx, it.ID); err != nil {
		return nil, apperr.Internal(err)
	}
	if err := s.repo.Touch(ctx, c.ID); err != nil {
		return nil, apperr.Internal(err)
	}
	return s.View(ctx, sessionID)
}

// Clear empties the session's cart. Clearing an absent cart is success.
func (s *Service) Clear(ctx context.Context, sessionID string) (*View, error) {
	if err := s.repo.ClearBySession(ctx, sessionID); err != nil {
		return nil, apperr.Internal(err)
	}
	return s.View(ctx, sessionID)
}

func (s *Service) Count(ctx context.Context, sessionID string) (int, error) {
	n, err := s.repo.Count(ctx, sessionID)
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return n, nil
}

// View returns the cart representation. An absent cart views as empty; a
// read never allocates one.
func (s *Service) View(ctx context.Context, sessionID string) (*View, error) {
	c, err := s.repo.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if c == nil {
		return &View{SessionID: sessionID, Items: []ItemView{}}, nil
	}
	return s.buildView(ctx, c)
}

func (s *Service) buildView(ctx context.Context, c *Cart) (*View, error) {
	v := &View{
		ID:          c.ID,
		SessionID:   c.SessionID,
		Items:       make([]ItemView, 0, len(c.Items)),
		TotalItems:  c.TotalItems(),
		TotalAmount: c.TotalAmount(),
	}
	for _, it := range c.Items {
		iv := ItemView{
			ID:        it.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
			Subtotal:  it.Price.Mul(decimalFromInt(it.Quantity)),
		}
		p, err := s.catalog.Get(ctx, it.ProductID)
		switch {
		case err == nil:
			iv.Product = &ProductInfo{
				ID:                p.ID,
				SKU:               p.SKU,
				Title:             p.Title,
				Brand:             p.Brand,
				InStock:           p.InStock(),
				QuantityAvailable: p.OnHand,
			}
		case errors.Is(err, catalog.ErrNotFound):
			// product deleted since it was added; the captured line survives
		default:
			return nil, apperr.Internal(fmt.Errorf("load product %s: %w", it.ProductID, err))
		}
		v.Items = append(v.Items, iv)
	}
	return v, nil
}

func (s *Service) findItem(ctx context.Context, sessionID, itemID string) (*Cart, *Item, error) {
	c, err := s.repo.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, nil, apperr.Internal(err)
	}
	if c == nil {
		return nil, nil, apperr.NotFound("cart")
	}
	it, err := s.repo.GetItem(ctx, c.ID, itemID)
	if err != nil {
		return nil, nil, apperr.Internal(err)
	}
	if it == nil {
		return nil, nil, apperr.NotFound("cart item")
	}
	return c, it, nil
}

func (s *Service) lookupProduct(ctx context.Context, productID string) (catalog.Product, error) {
	p, err := s.catalog.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return catalog.Product{}, apperr.NotFound("product")
		}
		return catalog.Product{}, apperr.Internal(err)
	}
	return p, nil
}
