package catalog

import (
	"strings"
	"time"

	"github.com/freely/backend/internal/domain/shared"
	"github.com/freely/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Product is an item an organization sells: physical goods, a digital
// download or a service. It is the aggregate root for catalog operations.
type Product struct {
	shared.TenantAggregateRoot
	Name           string     `gorm:"type:varchar(200);not null"`
	Slug           string     `gorm:"type:varchar(200);not null;index"`
	Description    string     `gorm:"type:text"`
	PriceCents     int64      `gorm:"not null"`
	Currency       string     `gorm:"type:varchar(3);not null;default:'USD'"`
	ImageURLs      StringList `gorm:"column:image_urls;type:jsonb;not null;default:'[]'"`
	StockAvailable *int64     // nil means unlimited
	IsAvailable    bool       `gorm:"not null;default:true"`
	IsDigital      bool       `gorm:"not null;default:false"`
	Categories     []Category `gorm:"many2many:product_categories;"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// ProductDetails carries the mutable attributes of a product
type ProductDetails struct {
	Name           string
	Slug           string
	Description    string
	PriceCents     int64
	Currency       string
	ImageURLs      []string
	StockAvailable *int64
	IsAvailable    bool
	IsDigital      bool
}

// NewProduct creates a new product for an organization.
// An empty slug is derived from the name.
func NewProduct(organizationID uuid.UUID, d ProductDetails) (*Product, error) {
	if d.Slug == "" {
		d.Slug = Slugify(d.Name)
	}
	if err := d.validate(); err != nil {
		return nil, err
	}

	product := &Product{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(organizationID),
		Name:                strings.TrimSpace(d.Name),
		Slug:                d.Slug,
		Description:         d.Description,
		PriceCents:          d.PriceCents,
		Currency:            valueobject.NormalizeCurrency(d.Currency).String(),
		ImageURLs:           StringList(append([]string{}, d.ImageURLs...)),
		StockAvailable:      d.StockAvailable,
		IsAvailable:         d.IsAvailable,
		IsDigital:           d.IsDigital,
	}

	product.AddDomainEvent(NewProductCreatedEvent(product))

	return product, nil
}

// ProductChanges is a partial update; nil fields are left untouched
type ProductChanges struct {
	Name           *string
	Slug           *string
	Description    *string
	PriceCents     *int64
	Currency       *string
	ImageURLs      []string
	StockAvailable *int64
	IsAvailable    *bool
	IsDigital      *bool
}

// Apply validates and applies a partial update
func (p *Product) Apply(c ProductChanges) error {
	d := ProductDetails{
		Name:           p.Name,
		Slug:           p.Slug,
		Description:    p.Description,
		PriceCents:     p.PriceCents,
		Currency:       p.Currency,
		ImageURLs:      p.ImageURLs,
		StockAvailable: p.StockAvailable,
		IsAvailable:    p.IsAvailable,
		IsDigital:      p.IsDigital,
	}
	if c.Name != nil {
		d.Name = *c.Name
	}
	if c.Slug != nil {
		d.Slug = *c.Slug
	}
	if c.Description != nil {
		d.Description = *c.Description
	}
	if c.PriceCents != nil {
		d.PriceCents = *c.PriceCents
	}
	if c.Currency != nil {
		d.Currency = *c.Currency
	}
	if c.ImageURLs != nil {
		d.ImageURLs = c.ImageURLs
	}
	if c.StockAvailable != nil {
		d.StockAvailable = c.StockAvailable
	}
	if c.IsAvailable != nil {
		d.IsAvailable = *c.IsAvailable
	}
	if c.IsDigital != nil {
		d.IsDigital = *c.IsDigital
	}
	if err := d.validate(); err != nil {
		return err
	}

	oldPrice := p.PriceCents
	p.Name = strings.TrimSpace(d.Name)
	p.Slug = d.Slug
	p.Description = d.Description
	p.PriceCents = d.PriceCents
	p.Currency = valueobject.NormalizeCurrency(d.Currency).String()
	p.ImageURLs = StringList(append([]string{}, d.ImageURLs...))
	p.StockAvailable = d.StockAvailable
	p.IsAvailable = d.IsAvailable
	p.IsDigital = d.IsDigital
	p.Touch()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductUpdatedEvent(p))
	if oldPrice != p.PriceCents {
		p.AddDomainEvent(NewProductPriceChangedEvent(p, oldPrice))
	}
	return nil
}

// SetCategories replaces the product's categories.
// Every category must belong to the product's organization.
func (p *Product) SetCategories(categories []Category) error {
	for i := range categories {
		if !categories[i].BelongsTo(p.OrganizationID) {
			return ErrUnknownCategoryID
		}
	}
	p.Categories = categories
	p.Touch()
	return nil
}

// CategoryIDs returns the IDs of the loaded categories
func (p *Product) CategoryIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.Categories))
	for _, c := range p.Categories {
		ids = append(ids, c.ID)
	}
	return ids
}

// AddImageURL appends an image URL
func (p *Product) AddImageURL(url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return ErrInvalidImageURL
	}
	p.ImageURLs = append(p.ImageURLs, url)
	p.Touch()
	p.IncrementVersion()
	p.AddDomainEvent(NewProductUpdatedEvent(p))
	return nil
}

// CheckPurchasable verifies the product can be added to a cart in the given quantity.
// Stock is only checked when it is tracked.
func (p *Product) CheckPurchasable(quantity int) error {
	if !p.IsAvailable || p.IsDeleted() {
		return ErrProductUnavailable
	}
	if !p.HasUnlimitedStock() && int64(quantity) > *p.StockAvailable {
		return ErrInsufficientStock
	}
	return nil
}

// HasUnlimitedStock reports whether stock is untracked
func (p *Product) HasUnlimitedStock() bool {
	return p.StockAvailable == nil
}

// Price returns the list price
func (p *Product) Price() valueobject.Money {
	return valueobject.FromCents(p.PriceCents, p.Currency)
}

// PriceDisplay renders the price, e.g. "$12.50"
func (p *Product) PriceDisplay() string {
	return p.Price().Display()
}

// Delete sets the product's tombstone
func (p *Product) Delete() {
	p.MarkDeleted(time.Now())
	p.IncrementVersion()
	p.AddDomainEvent(NewProductDeletedEvent(p))
}

func (d ProductDetails) validate() error {
	if err := validateName(d.Name, 200); err != nil {
		return err
	}
	if err := ValidateSlug(d.Slug); err != nil {
		return err
	}
	price, err := valueobject.NewMoney(d.PriceCents, valueobject.NormalizeCurrency(d.Currency))
	if err != nil {
		return ErrInvalidCurrency
	}
	if price.IsNegative() {
		return ErrInvalidPrice
	}
	if d.StockAvailable != nil && *d.StockAvailable < 0 {
		return ErrInvalidStock
	}
	return nil
}

func validateName(name string, limit int) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName.WithMessage("Name cannot be empty")
	}
	if len([]rune(name)) > limit {
		return ErrInvalidName.WithMessage("Name is too long")
	}
	return nil
}
