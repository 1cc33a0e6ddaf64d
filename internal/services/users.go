// users.go
//
// User lifecycle operations. Usernames are the primary key and are
// lower-cased on every path in or out.

package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/taskpilot/taskpilot/internal/apperrors"
	"github.com/taskpilot/taskpilot/internal/models"
	"github.com/taskpilot/taskpilot/internal/store"
)

// loginFailedMessage is shared by the bad-username and bad-password paths so
// responses carry no user-enumeration signal.
const loginFailedMessage = "Incorrect username or password"

// UserService implements user entity operations
type UserService struct {
	Store  store.Store
	Hasher *PasswordHasher
	Log    *slog.Logger
}

// CreateUserRequest is the payload for user registration. Username is
// optional; a UUID is generated when absent.
type CreateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required"`
	Password string `json:"password" validate:"required"`
	IsAdmin  bool   `json:"is_admin"`
}

// UpdateUserRequest replaces every mutable user field. The password is
// always rehashed.
type UpdateUserRequest struct {
	Email           string   `json:"email" validate:"required,email"`
	FullName        string   `json:"full_name" validate:"required"`
	Password        string   `json:"password" validate:"required"`
	IsAdmin         bool     `json:"is_admin"`
	Disabled        bool     `json:"disabled"`
	FavoriteTickets []string `json:"favorite_tickets"`
	Projects        []string `json:"projects"`
}

// SearchUsersRequest filters users by the intersection of supplied fields.
type SearchUsersRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
	IsAdmin  *bool   `json:"is_admin"`
	Disabled *bool   `json:"disabled"`
}

// LoginRequest carries login credentials.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Get retrieves a user by id, lower-casing before lookup.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	id = normalizeUsername(id)
	var user models.User
	if err := s.Store.Get(ctx, models.CollectionUsers, id, &user); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewNotFound("User with id '%s' not found", id)
		}
		return nil, storageFailure(err)
	}
	return &user, nil
}

// Create registers a new user. The username check-then-create is backstopped
// by the store's create-only-if-absent semantics, so a race cannot silently
// duplicate.
func (s *UserService) Create(ctx context.Context, req *CreateUserRequest) (*models.User, error) {
	username := normalizeUsername(req.Username)
	if username == "" {
		username = uuid.NewString()
	}

	if existing, err := lookupUser(ctx, s.Store, username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, apperrors.NewConflict("User with id '%s' already exists", username)
	}

	hashed, err := s.Hasher.Hash(req.Password)
	if err != nil {
		return nil, storageFailure(err)
	}

	user := models.User{
		Username:        username,
		Email:           req.Email,
		FullName:        req.FullName,
		HashedPassword:  hashed,
		IsAdmin:         req.IsAdmin,
		FavoriteTickets: []string{},
		Projects:        []string{},
	}
	if err := s.Store.Create(ctx, models.CollectionUsers, username, &user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, apperrors.NewConflict("User with id '%s' already exists", username)
		}
		return nil, storageFailure(err)
	}

	s.Log.Info("user created", "username", username)
	return &user, nil
}

// Update replaces all mutable fields of the user keyed by the lower-cased
// path id; any username in the payload is ignored.
func (s *UserService) Update(ctx context.Context, id string, req *UpdateUserRequest) (*models.User, error) {
	id = normalizeUsername(id)

	hashed, err := s.Hasher.Hash(req.Password)
	if err != nil {
		return nil, storageFailure(err)
	}

	user := models.User{
		Username:        id,
		Email:           req.Email,
		FullName:        req.FullName,
		HashedPassword:  hashed,
		IsAdmin:         req.IsAdmin,
		Disabled:        req.Disabled,
		FavoriteTickets: req.FavoriteTickets,
		Projects:        req.Projects,
	}
	if user.FavoriteTickets == nil {
		user.FavoriteTickets = []string{}
	}
	if user.Projects == nil {
		user.Projects = []string{}
	}

	fields := map[string]any{
		"username":         user.Username,
		"email":            user.Email,
		"full_name":        user.FullName,
		"hashed_password":  user.HashedPassword,
		"is_admin":         user.IsAdmin,
		"disabled":         user.Disabled,
		"favorite_tickets": user.FavoriteTickets,
		"projects":         user.Projects,
	}
	if err := s.Store.Update(ctx, models.CollectionUsers, id, fields); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewNotFound("User with id '%s' not found", id)
		}
		return nil, storageFailure(err)
	}

	s.Log.Info("user updated", "username", id)
	return &user, nil
}

// Delete removes a user unconditionally. References from project members or
// ticket assignees are not cleaned up; readers tolerate dangling usernames.
func (s *UserService) Delete(ctx context.Context, id string) error {
	id = normalizeUsername(id)
	if err := s.Store.Delete(ctx, models.CollectionUsers, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NewNotFound("User with id '%s' not found", id)
		}
		return storageFailure(err)
	}
	s.Log.Info("user deleted", "username", id)
	return nil
}

// List returns all users sorted by username.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	raw, err := s.Store.GetAll(ctx, models.CollectionUsers)
	if err != nil {
		return nil, storageFailure(err)
	}
	return sortedUsers(raw)
}

// Search returns users matching every supplied filter; an empty filter set
// returns all users.
func (s *UserService) Search(ctx context.Context, req *SearchUsersRequest) ([]models.User, error) {
	filters := make(map[string]any)
	if req.Username != nil {
		filters["username"] = normalizeUsername(*req.Username)
	}
	if req.Email != nil {
		filters["email"] = *req.Email
	}
	if req.FullName != nil {
		filters["full_name"] = *req.FullName
	}
	if req.IsAdmin != nil {
		filters["is_admin"] = *req.IsAdmin
	}
	if req.Disabled != nil {
		filters["disabled"] = *req.Disabled
	}

	raw, err := s.Store.Search(ctx, models.CollectionUsers, filters)
	if err != nil {
		return nil, storageFailure(err)
	}
	return sortedUsers(raw)
}

// Login verifies credentials. An unknown username and a wrong password
// produce the identical failure.
func (s *UserService) Login(ctx context.Context, req *LoginRequest) (*models.User, error) {
	user, err := lookupUser(ctx, s.Store, req.Username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NewAuth(loginFailedMessage)
	}
	if err := s.Hasher.Verify(req.Password, user.HashedPassword); err != nil {
		return nil, apperrors.NewAuth(loginFailedMessage)
	}
	return user, nil
}

// FavoriteTicket adds a ticket to the user's favorites. The ticket must
// exist.
func (s *UserService) FavoriteTicket(ctx context.Context, userID, ticketID string) (*models.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.Store.Get(ctx, models.CollectionTickets, ticketID, nil); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewValidation("Ticket with id '%s' does not exist", ticketID)
		}
		return nil, storageFailure(err)
	}

	for _, id := range user.FavoriteTickets {
		if id == ticketID {
			return user, nil
		}
	}
	user.FavoriteTickets = append(user.FavoriteTickets, ticketID)

	fields := map[string]any{"favorite_tickets": user.FavoriteTickets}
	if err := s.Store.Update(ctx, models.CollectionUsers, user.Username, fields); err != nil {
		return nil, storageFailure(err)
	}
	return user, nil
}

// UnfavoriteTicket removes a ticket from the user's favorites. Removing an
// absent favorite is not an error.
func (s *UserService) UnfavoriteTicket(ctx context.Context, userID, ticketID string) (*models.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	favorites := make([]string, 0, len(user.FavoriteTickets))
	for _, id := range user.FavoriteTickets {
		if id != ticketID {
			favorites = append(favorites, id)
		}
	}
	user.FavoriteTickets = favorites

	fields := map[string]any{"favorite_tickets": user.FavoriteTickets}
	if err := s.Store.Update(ctx, models.CollectionUsers, user.Username, fields); err != nil {
		return nil, storageFailure(err)
	}
	return user, nil
}

func sortedUsers(raw map[string]json.RawMessage) ([]models.User, error) {
	users, err := decodeAll[models.User](raw)
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].Username < users[j].Username
	})
	return users, nil
}
