package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/JosipBeDa/alchemy/internal/core/apperror"
	"github.com/JosipBeDa/alchemy/internal/core/id"
	"github.com/JosipBeDa/alchemy/internal/domain/auth"
)

const usersCollection = "users"

// UserRepo implements auth.UserRepository over the users collection.
// Operations join an in-flight transaction when the context carries a
// bound session.
type UserRepo struct {
	driver *Driver
}

// NewUserRepo creates a new user repository over the driver.
func NewUserRepo(driver *Driver) *UserRepo {
	return &UserRepo{driver: driver}
}

var _ auth.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) collection() *mongo.Collection {
	return r.driver.Client().Database().Collection(usersCollection)
}

// Create creates a new user. A duplicate email surfaces CONFLICT (the
// collection carries a unique index on email).
func (r *UserRepo) Create(ctx context.Context, email, username, passwordHash string) (*auth.User, error) {
	now := time.Now()
	user := &auth.User{
		ID:           id.New().String(),
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := r.collection().InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperror.NewConflict("email already registered").
				WithDetail("email", email).
				WithCause(err)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, userID string) (*auth.User, error) {
	return r.findOne(ctx, bson.M{"_id": userID}, userID)
}

// GetByEmail retrieves a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.findOne(ctx, bson.M{"email": email}, email)
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.M, ident string) (*auth.User, error) {
	var user auth.User
	err := r.collection().FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NewNotFound("user", ident)
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// UpdatePassword replaces the user's password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) (*auth.User, error) {
	return r.updateOne(ctx, userID, bson.M{"password_hash": passwordHash})
}

// UpdateOTPSecret sets the user's one-time-code secret.
func (r *UserRepo) UpdateOTPSecret(ctx context.Context, userID, secret string) (*auth.User, error) {
	return r.updateOne(ctx, userID, bson.M{"otp_secret": secret})
}

// VerifyEmail stamps the user's email verification time.
func (r *UserRepo) VerifyEmail(ctx context.Context, userID string) (*auth.User, error) {
	return r.updateOne(ctx, userID, bson.M{"verified_at": time.Now()})
}

// UpdateLastLogin stamps the user's last successful login time.
func (r *UserRepo) UpdateLastLogin(ctx context.Context, userID string) (*auth.User, error) {
	return r.updateOne(ctx, userID, bson.M{"last_login_at": time.Now()})
}

// Freeze suspends the account.
func (r *UserRepo) Freeze(ctx context.Context, userID string) (*auth.User, error) {
	return r.updateOne(ctx, userID, bson.M{"frozen": true})
}

func (r *UserRepo) updateOne(ctx context.Context, userID string, set bson.M) (*auth.User, error) {
	set["updated_at"] = time.Now()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user auth.User
	err := r.collection().
		FindOneAndUpdate(ctx, bson.M{"_id": userID}, bson.M{"$set": set}, opts).
		Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NewNotFound("user", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	return &user, nil
}
