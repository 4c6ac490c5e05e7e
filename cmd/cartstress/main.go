package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

const (
	productID     = "stress-test-product"
	initialStock  = 20
	totalRequests = 50
)

func main() {
	ctx := context.Background()

	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017/?directConnection=true"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatalf("failed to connect mongodb: %v", err)
	}
	defer client.Disconnect(ctx)

	if err := client.Ping(ctx, nil); err != nil {
		log.Fatalf("failed to ping mongodb: %v", err)
	}

	db := client.Database("storefront_stress")
	db.Collection("products").DeleteMany(ctx, bson.M{"_id": productID})
	db.Collection("carts").DeleteMany(ctx, bson.M{"product_id": productID})

	store := storage.NewMongoStore(db)
	if err := store.EnsureIndexes(ctx); err != nil {
		log.Fatalf("failed to create indexes: %v", err)
	}

	now := time.Now()
	if err := store.CreateProducts(ctx, []domain.Product{{
		ID:        productID,
		Name:      "Stress Widget",
		Price:     "9.99",
		Stock:     initialStock,
		CreatedAt: now,
		UpdatedAt: now,
	}}); err != nil {
		log.Fatalf("failed to seed product: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	svc := service.NewCartService(storage.NewMongoTxRunner(client), store, store, nil, logger)

	var successCount atomic.Int32
	var failCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()

			_, err := svc.AddToCart(ctx, fmt.Sprintf("user-%d", userID), productID)
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== CART STRESS RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("=========================================")

	if success == int32(initialStock) {
		fmt.Printf("PASS: Exactly %d adds succeeded\n", initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d successes, got %d\n", initialStock, success)
	}

	product, err := store.GetProduct(ctx, productID)
	if err != nil || product == nil {
		log.Fatalf("failed to read back product: %v", err)
	}

	reserved := 0
	cursor, err := db.Collection("carts").Find(ctx, bson.M{"product_id": productID})
	if err != nil {
		log.Fatalf("failed to read cart lines: %v", err)
	}
	var all []domain.CartLine
	if err := cursor.All(ctx, &all); err != nil {
		log.Fatalf("failed to decode cart lines: %v", err)
	}
	for _, l := range all {
		reserved += l.Quantity
	}

	fmt.Printf("Final Stock:      %d\n", product.Stock)
	fmt.Printf("Reserved:         %d\n", reserved)

	if product.Stock+reserved == initialStock && product.Stock >= 0 {
		fmt.Println("PASS: Stock + reserved units conserved")
	} else {
		fmt.Printf("FAIL: Expected stock+reserved == %d, got %d\n", initialStock, product.Stock+reserved)
	}
}
