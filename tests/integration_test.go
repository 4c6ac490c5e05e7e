package tests

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

type testEnv struct {
	client *mongo.Client
	db     *mongo.Database
	store  *storage.MongoStore
	runner *storage.MongoTxRunner
	cache  *storage.RedisCatalogCache
	carts  *service.CartService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017/?directConnection=true"
	}
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}

	var cache *storage.RedisCatalogCache
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err == nil {
		cache = storage.NewRedisCatalogCache(rdb, time.Minute)
		t.Cleanup(func() { rdb.Close() })
	}

	db := client.Database("storefront_integration")
	store := storage.NewMongoStore(db)
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("failed to create indexes: %v", err)
	}
	runner := storage.NewMongoTxRunner(client)

	// Transactions need a replica set; probe and skip on standalone.
	err = runner.RunInTransaction(ctx, func(txCtx context.Context) error {
		_, err := store.GetProduct(txCtx, "tx-probe")
		return err
	})
	if err != nil {
		t.Skipf("MongoDB transactions not available: %v", err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	t.Cleanup(func() { client.Disconnect(context.Background()) })

	return &testEnv{
		client: client,
		db:     db,
		store:  store,
		runner: runner,
		cache:  cache,
		carts:  service.NewCartService(runner, store, store, cache, log),
	}
}

func (env *testEnv) seedProduct(t *testing.T, stock int) string {
	t.Helper()
	id := "it-product-" + uuid.New().String()
	now := time.Now()
	err := env.store.CreateProducts(context.Background(), []domain.Product{{
		ID: id, Name: "Integration Widget", Price: "9.99", Stock: stock,
		CreatedAt: now, UpdatedAt: now,
	}})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		env.db.Collection("products").DeleteOne(ctx, bson.M{"_id": id})
		env.db.Collection("carts").DeleteMany(ctx, bson.M{"product_id": id})
	})
	return id
}

func (env *testEnv) reservedFor(t *testing.T, productID string) int {
	t.Helper()
	cursor, err := env.db.Collection("carts").Find(context.Background(), bson.M{"product_id": productID})
	if err != nil {
		t.Fatalf("read cart lines: %v", err)
	}
	var lines []domain.CartLine
	if err := cursor.All(context.Background(), &lines); err != nil {
		t.Fatalf("decode cart lines: %v", err)
	}
	total := 0
	for _, l := range lines {
		total += l.Quantity
	}
	return total
}

func TestIntegration_AddRemoveFlow(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	productID := env.seedProduct(t, 5)
	userID := "it-user-" + uuid.New().String()

	item, err := env.carts.AddToCart(ctx, userID, productID)
	if err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	if item.Quantity != 1 || item.Stock != 4 {
		t.Errorf("expected quantity 1 / stock 4, got %d / %d", item.Quantity, item.Stock)
	}

	item, err = env.carts.AddToCart(ctx, userID, productID)
	if err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	if item.Quantity != 2 || item.Stock != 3 {
		t.Errorf("expected quantity 2 / stock 3, got %d / %d", item.Quantity, item.Stock)
	}

	item, err = env.carts.RemoveFromCart(ctx, userID, productID)
	if err != nil {
		t.Fatalf("first remove failed: %v", err)
	}
	if item.Removed || item.Quantity != 1 || item.Stock != 4 {
		t.Errorf("expected quantity 1 / stock 4, got %+v", item)
	}

	item, err = env.carts.RemoveFromCart(ctx, userID, productID)
	if err != nil {
		t.Fatalf("second remove failed: %v", err)
	}
	if !item.Removed || item.Stock != 5 {
		t.Errorf("expected removed / stock 5, got %+v", item)
	}

	items, err := env.carts.ListCart(ctx, userID)
	if err != nil {
		t.Fatalf("ListCart failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected empty cart, got %d items", len(items))
	}
}

func TestIntegration_RemoveNotInCart(t *testing.T) {
	env := setupTestEnv(t)
	productID := env.seedProduct(t, 5)

	_, err := env.carts.RemoveFromCart(context.Background(), "it-nobody", productID)
	if !errors.Is(err, domain.ErrNotInCart) {
		t.Fatalf("expected ErrNotInCart, got: %v", err)
	}
}

func TestIntegration_OutOfStockLeavesStateUntouched(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	productID := env.seedProduct(t, 0)

	_, err := env.carts.AddToCart(ctx, "it-user", productID)
	if !errors.Is(err, domain.ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got: %v", err)
	}

	p, err := env.store.GetProduct(ctx, productID)
	if err != nil || p == nil {
		t.Fatalf("read back product: %v", err)
	}
	if p.Stock != 0 {
		t.Errorf("stock changed on failed add: %d", p.Stock)
	}
	if reserved := env.reservedFor(t, productID); reserved != 0 {
		t.Errorf("cart line created on failed add: %d reserved", reserved)
	}
}

func TestIntegration_ConcurrentAddsConserveStock(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	initialStock := 10
	totalRequests := 30
	productID := env.seedProduct(t, initialStock)

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			userID := fmt.Sprintf("it-user-%d", id)
			if _, err := env.carts.AddToCart(ctx, userID, productID); err == nil {
				successCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	p, err := env.store.GetProduct(ctx, productID)
	if err != nil || p == nil {
		t.Fatalf("read back product: %v", err)
	}
	reserved := env.reservedFor(t, productID)

	if p.Stock < 0 {
		t.Errorf("stock went negative: %d", p.Stock)
	}
	if p.Stock+reserved != initialStock {
		t.Errorf("conservation violated: stock %d + reserved %d != %d", p.Stock, reserved, initialStock)
	}
	if int(successCount.Load()) != reserved {
		t.Errorf("successes %d do not match reserved units %d", successCount.Load(), reserved)
	}
}
