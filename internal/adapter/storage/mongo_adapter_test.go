package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rl1809/storefront/internal/core/domain"
)

func getMongo(t *testing.T) (*mongo.Client, *mongo.Database) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017/?directConnection=true"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}

	t.Cleanup(func() { client.Disconnect(context.Background()) })
	return client, client.Database("storefront_test")
}

func seedProduct(t *testing.T, store *MongoStore, stock int) string {
	t.Helper()
	id := "test-product-" + uuid.New().String()
	now := time.Now()
	err := store.CreateProducts(context.Background(), []domain.Product{{
		ID: id, Name: "Test Widget", Price: "9.99", Stock: stock,
		CreatedAt: now, UpdatedAt: now,
	}})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return id
}

func TestMongoProductRoundTrip(t *testing.T) {
	_, db := getMongo(t)
	store := NewMongoStore(db)
	ctx := context.Background()

	id := seedProduct(t, store, 7)
	defer db.Collection("products").DeleteOne(ctx, bson.M{"_id": id})

	p, err := store.GetProduct(ctx, id)
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if p == nil {
		t.Fatal("expected product, got nil")
	}
	if p.Stock != 7 || p.Name != "Test Widget" {
		t.Errorf("unexpected product: %+v", p)
	}
}

func TestMongoGetProduct_NotFound(t *testing.T) {
	_, db := getMongo(t)
	store := NewMongoStore(db)

	p, err := store.GetProduct(context.Background(), "nonexistent-product")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != nil {
		t.Errorf("expected nil for missing product, got %+v", p)
	}
}

func TestMongoUpdateProductStock_Conditional(t *testing.T) {
	_, db := getMongo(t)
	store := NewMongoStore(db)
	ctx := context.Background()

	id := seedProduct(t, store, 10)
	defer db.Collection("products").DeleteOne(ctx, bson.M{"_id": id})

	if err := store.UpdateProductStock(ctx, id, 10, 9); err != nil {
		t.Fatalf("conditional update failed: %v", err)
	}

	// Stale expectation must not match.
	err := store.UpdateProductStock(ctx, id, 10, 8)
	if !errors.Is(err, domain.ErrTxConflict) {
		t.Fatalf("expected ErrTxConflict, got: %v", err)
	}

	p, _ := store.GetProduct(ctx, id)
	if p.Stock != 9 {
		t.Errorf("expected stock 9, got %d", p.Stock)
	}
}

func TestMongoCartLineLifecycle(t *testing.T) {
	_, db := getMongo(t)
	store := NewMongoStore(db)
	ctx := context.Background()

	userID := "test-user-" + uuid.New().String()
	productID := "test-product-" + uuid.New().String()
	defer db.Collection("carts").DeleteMany(ctx, bson.M{"user_id": userID})

	line, err := store.GetCartLine(ctx, userID, productID)
	if err != nil {
		t.Fatalf("GetCartLine failed: %v", err)
	}
	if line != nil {
		t.Fatalf("expected no line, got %+v", line)
	}

	now := time.Now()
	created := domain.CartLine{
		ID: uuid.New().String(), UserID: userID, ProductID: productID,
		Quantity: 1, CreatedAt: now, UpdatedAt: now,
	}
	if err := store.CreateCartLine(ctx, created); err != nil {
		t.Fatalf("CreateCartLine failed: %v", err)
	}

	if err := store.UpdateCartLineQuantity(ctx, created.ID, 1, 2); err != nil {
		t.Fatalf("UpdateCartLineQuantity failed: %v", err)
	}
	if err := store.UpdateCartLineQuantity(ctx, created.ID, 1, 3); !errors.Is(err, domain.ErrTxConflict) {
		t.Fatalf("stale quantity update: expected ErrTxConflict, got %v", err)
	}

	lines, err := store.ListCartLines(ctx, userID)
	if err != nil {
		t.Fatalf("ListCartLines failed: %v", err)
	}
	if len(lines) != 1 || lines[0].Quantity != 2 {
		t.Errorf("unexpected lines: %+v", lines)
	}

	if err := store.DeleteCartLine(ctx, created.ID); err != nil {
		t.Fatalf("DeleteCartLine failed: %v", err)
	}
	if err := store.DeleteCartLine(ctx, created.ID); !errors.Is(err, domain.ErrNotInCart) {
		t.Fatalf("second delete: expected ErrNotInCart, got %v", err)
	}
}

func TestMongoTxRunner_RejectsNested(t *testing.T) {
	client, db := getMongo(t)
	runner := NewMongoTxRunner(client)
	store := NewMongoStore(db)
	ctx := context.Background()

	// Transactions need a replica set; probe with a real read and skip on
	// standalone deployments.
	err := runner.RunInTransaction(ctx, func(txCtx context.Context) error {
		_, err := store.GetProduct(txCtx, "tx-probe")
		return err
	})
	if err != nil {
		t.Skipf("MongoDB transactions not available: %v", err)
	}

	err = runner.RunInTransaction(ctx, func(txCtx context.Context) error {
		return runner.RunInTransaction(txCtx, func(context.Context) error { return nil })
	})
	if err == nil {
		t.Fatal("expected nested transaction to be rejected")
	}
}
