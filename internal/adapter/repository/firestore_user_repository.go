package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"swapmart/internal/domain/entity"
	"swapmart/internal/domain/repository"
	"swapmart/pkg/errors"
)

// firestoreUserRepository reads the identity subsystem's user documents. This
// service never writes them.
type firestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) repository.UserRepository {
	return &firestoreUserRepository{
		client: client,
	}
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User

	err := withReadRetry(ctx, func() error {
		doc, err := r.client.Collection("users").Doc(id).Get(ctx)
		if err != nil {
			return err
		}
		return doc.DataTo(&user)
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("User", err)
		}
		return nil, mapStoreError("Failed to get user", err)
	}

	if user.ID == "" {
		user.ID = id
	}
	return &user, nil
}
