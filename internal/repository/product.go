package repository

import (
	"carparts-storefront/internal/model"
	"carparts-storefront/internal/query"
	"context"

	"gorm.io/gorm"
)

var productListSpec = &query.Spec{
	Table:         "products",
	SearchColumns: []string{"name", "brand", "category"},
	Filters: []query.Filter{
		{Param: "id", Column: "id", Kind: query.ID},
		{Param: "category", Column: "category", Kind: query.Text},
		{Param: "brand", Column: "brand", Kind: query.Text},
		{Param: "min_price", Column: "price", Kind: query.MinDecimal},
		{Param: "max_price", Column: "price", Kind: query.MaxDecimal},
	},
	Sorts: map[string]string{
		"newest":     "created_at DESC",
		"price_asc":  "price ASC",
		"price_desc": "price DESC",
		"name_asc":   "name ASC",
		"name_desc":  "name DESC",
	},
	DefaultSort: "newest",
	TieBreaker:  "id DESC",
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, productID int64) (*model.Product, error)
	FindMany(ctx context.Context, tx *gorm.DB, productIDs []int64) ([]*model.Product, error)
	List(ctx context.Context, params query.Params) (*query.Page[model.Product], error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, productID int64) (bool, error)
	Categories(ctx context.Context) ([]*model.CategorySummary, error)
	DecrementStock(ctx context.Context, tx *gorm.DB, productID int64, quantity int) error
}

type productRepoImpl struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepoImpl{
		db: db,
	}
}

func (r *productRepoImpl) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepoImpl) FindByID(ctx context.Context, productID int64) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Where("id = ?", productID).
		First(&product).Error

	if err != nil {
		return nil, err
	}

	return &product, nil
}

func (r *productRepoImpl) FindMany(ctx context.Context, tx *gorm.DB, productIDs []int64) ([]*model.Product, error) {
	var products []*model.Product
	err := conn(r.db, tx).WithContext(ctx).
		Where("id IN ?", productIDs).
		Find(&products).
		Error

	if err != nil {
		return nil, err
	}

	return products, nil
}

func (r *productRepoImpl) List(ctx context.Context, params query.Params) (*query.Page[model.Product], error) {
	return query.Run[model.Product](ctx, r.db, productListSpec, params)
}

func (r *productRepoImpl) Update(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Model(product).
		Select("name", "brand", "category", "description", "price", "stock", "image_url").
		Updates(product).Error
}

func (r *productRepoImpl) Delete(ctx context.Context, productID int64) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&model.Product{}, productID)
	return res.RowsAffected > 0, res.Error
}

func (r *productRepoImpl) Categories(ctx context.Context) ([]*model.CategorySummary, error) {
	var rows []*model.CategorySummary
	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Select("category, COUNT(*) AS product_count").
		Group("category").
		Order("category").
		Scan(&rows).Error

	if err != nil {
		return nil, err
	}

	return rows, nil
}

// DecrementStock never takes stock below zero.
func (r *productRepoImpl) DecrementStock(ctx context.Context, tx *gorm.DB, productID int64, quantity int) error {
	return conn(r.db, tx).WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock", gorm.Expr("CASE WHEN stock >= ? THEN stock - ? ELSE 0 END", quantity, quantity)).
		Error
}
