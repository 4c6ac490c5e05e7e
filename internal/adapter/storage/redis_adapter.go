package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/storefront/internal/core/domain"
)

const (
	productKeyPrefix = "product:"
	productListKey   = "products:all"
)

// RedisCatalogCache caches catalog reads. Entries expire after the TTL and
// are dropped eagerly when a committed transaction changes stock.
type RedisCatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCatalogCache(client *redis.Client, ttl time.Duration) *RedisCatalogCache {
	return &RedisCatalogCache{client: client, ttl: ttl}
}

func (r *RedisCatalogCache) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	data, err := r.client.Get(ctx, productKeyPrefix+productID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var p domain.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *RedisCatalogCache) SetProduct(ctx context.Context, product domain.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, productKeyPrefix+product.ID, data, r.ttl).Err()
}

func (r *RedisCatalogCache) InvalidateProduct(ctx context.Context, productID string) error {
	return r.client.Del(ctx, productKeyPrefix+productID).Err()
}

func (r *RedisCatalogCache) GetProductList(ctx context.Context) ([]domain.Product, error) {
	data, err := r.client.Get(ctx, productListKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var products []domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *RedisCatalogCache) SetProductList(ctx context.Context, products []domain.Product) error {
	data, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, productListKey, data, r.ttl).Err()
}

func (r *RedisCatalogCache) InvalidateProductList(ctx context.Context) error {
	return r.client.Del(ctx, productListKey).Err()
}
