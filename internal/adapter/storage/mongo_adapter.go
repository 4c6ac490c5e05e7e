package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// MongoStore implements the inventory, cart and user store ports on top of
// one MongoDB database. Every method participates in a session-bound
// transaction when the caller's context carries one.
type MongoStore struct {
	products *mongo.Collection
	carts    *mongo.Collection
	users    *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		products: db.Collection("products"),
		carts:    db.Collection("carts"),
		users:    db.Collection("users"),
	}
}

// EnsureIndexes creates the unique index backing the one-line-per-product
// invariant and the unique credential indexes on users.
func (m *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := m.carts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "product_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create cart index: %w", err)
	}

	_, err = m.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"email": bson.M{"$gt": ""}}),
		},
		{
			Keys: bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"phone": bson.M{"$gt": ""}}),
		},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

func (m *MongoStore) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	var p domain.Product
	err := m.products.FindOne(ctx, bson.M{"_id": productID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}

func (m *MongoStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	cursor, err := m.products.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	var products []domain.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}

func (m *MongoStore) CreateProducts(ctx context.Context, products []domain.Product) error {
	docs := make([]interface{}, len(products))
	for i := range products {
		docs[i] = products[i]
	}
	if _, err := m.products.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert products: %w", err)
	}
	return nil
}

func (m *MongoStore) UpdateProductStock(ctx context.Context, productID string, fromStock, toStock int) error {
	res, err := m.products.UpdateOne(ctx,
		bson.M{"_id": productID, "stock": fromStock},
		bson.M{"$set": bson.M{"stock": toStock, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	if res.MatchedCount == 0 {
		// Stock moved underneath us since the read.
		return domain.ErrTxConflict
	}
	return nil
}

func (m *MongoStore) GetCartLine(ctx context.Context, userID, productID string) (*domain.CartLine, error) {
	var line domain.CartLine
	err := m.carts.FindOne(ctx, bson.M{"user_id": userID, "product_id": productID}).Decode(&line)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query cart line: %w", err)
	}
	return &line, nil
}

func (m *MongoStore) ListCartLines(ctx context.Context, userID string) ([]domain.CartLine, error) {
	cursor, err := m.carts.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}

	var lines []domain.CartLine
	if err := cursor.All(ctx, &lines); err != nil {
		return nil, fmt.Errorf("decode cart lines: %w", err)
	}
	return lines, nil
}

func (m *MongoStore) CreateCartLine(ctx context.Context, line domain.CartLine) error {
	_, err := m.carts.InsertOne(ctx, line)
	if mongo.IsDuplicateKeyError(err) {
		// A concurrent request created the same (user, product) line.
		return domain.ErrTxConflict
	}
	if err != nil {
		return fmt.Errorf("insert cart line: %w", err)
	}
	return nil
}

func (m *MongoStore) UpdateCartLineQuantity(ctx context.Context, lineID string, fromQty, toQty int) error {
	res, err := m.carts.UpdateOne(ctx,
		bson.M{"_id": lineID, "quantity": fromQty},
		bson.M{"$set": bson.M{"quantity": toQty, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("update cart line: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrTxConflict
	}
	return nil
}

func (m *MongoStore) DeleteCartLine(ctx context.Context, lineID string) error {
	res, err := m.carts.DeleteOne(ctx, bson.M{"_id": lineID})
	if err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotInCart
	}
	return nil
}

func (m *MongoStore) FindUserByEmailOrPhone(ctx context.Context, email, phone string) (*domain.User, error) {
	var clauses bson.A
	if email != "" {
		clauses = append(clauses, bson.M{"email": email})
	}
	if phone != "" {
		clauses = append(clauses, bson.M{"phone": phone})
	}
	if len(clauses) == 0 {
		return nil, nil
	}

	var user domain.User
	err := m.users.FindOne(ctx, bson.M{"$or": clauses}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

func (m *MongoStore) CreateUser(ctx context.Context, user domain.User) error {
	_, err := m.users.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// MongoTxRunner executes units of work inside a MongoDB session
// transaction. It performs no retries; conflict retry policy belongs to
// the caller.
type MongoTxRunner struct {
	client *mongo.Client
}

func NewMongoTxRunner(client *mongo.Client) *MongoTxRunner {
	return &MongoTxRunner{client: client}
}

func (r *MongoTxRunner) RunInTransaction(ctx context.Context, fn port.UnitOfWork) error {
	if mongo.SessionFromContext(ctx) != nil {
		return errors.New("nested transactions are not supported")
	}

	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("%w: start session: %v", domain.ErrUnavailable, err)
	}
	defer session.EndSession(ctx)

	sc := mongo.NewSessionContext(ctx, session)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if err := session.StartTransaction(txnOpts); err != nil {
		return fmt.Errorf("%w: start transaction: %v", domain.ErrUnavailable, err)
	}

	if err := fn(sc); err != nil {
		// Best effort; an unacknowledged abort expires server-side.
		_ = session.AbortTransaction(sc)
		if isTransient(err) {
			return fmt.Errorf("%w: %v", domain.ErrTxConflict, err)
		}
		return err
	}

	if err := session.CommitTransaction(sc); err != nil {
		if isTransient(err) {
			return fmt.Errorf("%w: commit: %v", domain.ErrTxConflict, err)
		}
		return fmt.Errorf("%w: commit: %v", domain.ErrUnavailable, err)
	}
	return nil
}

// isTransient reports whether the server labeled the error as retryable
// from the top of the transaction.
func isTransient(err error) bool {
	var se mongo.ServerError
	if errors.As(err, &se) {
		return se.HasErrorLabel("TransientTransactionError") ||
			se.HasErrorLabel("UnknownTransactionCommitResult")
	}
	return false
}
