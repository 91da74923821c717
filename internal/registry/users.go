package registry

import (
	"context"
	"strings"
	"time"

	"batchline/internal/docstore"
	applog "batchline/internal/log"
	"batchline/models"
)

type Users struct {
	*core
}

// Create hashes the password and stores a new user. Usernames are unique.
func (r *Users) Create(ctx context.Context, in UserInput) (models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := check(in); err != nil {
		return models.User{}, err
	}

	hash, err := r.hasher.Hash(in.Password)
	if err != nil {
		return models.User{}, err
	}

	user := models.NewUser(in.Username, hash, in.Role)
	err = r.update(ctx, []docstore.Collection{docstore.Users}, func(txn docstore.Txn) error {
		if err := usernameFree(ctx, txn, in.Username, ""); err != nil {
			return err
		}
		return save(ctx, txn, docstore.Users, user.ID, user)
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *Users) Get(ctx context.Context, id string) (models.User, error) {
	return load[models.User](ctx, r.store, docstore.Users, id)
}

// Update replaces username, role and optionally the password, then
// refreshes the operator copy of every sprint run by the user, including the
// sprints held in process histories.
func (r *Users) Update(ctx context.Context, id string, in UserUpdate) (models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := check(in); err != nil {
		return models.User{}, err
	}

	var hash string
	if in.Password != nil {
		var err error
		if hash, err = r.hasher.Hash(*in.Password); err != nil {
			return models.User{}, err
		}
	}

	var (
		updated   models.User
		rewritten int
	)
	started := time.Now()
	err := r.update(ctx, []docstore.Collection{docstore.Processes, docstore.Sprints, docstore.Users}, func(txn docstore.Txn) error {
		user, err := load[models.User](ctx, txn, docstore.Users, id)
		if err != nil {
			return err
		}
		if err := usernameFree(ctx, txn, in.Username, user.ID); err != nil {
			return err
		}
		user.Username = in.Username
		user.Role = in.Role
		if hash != "" {
			user.PasswordHash = hash
		}
		user.Touch()
		if err := save(ctx, txn, docstore.Users, user.ID, user); err != nil {
			return err
		}
		rewritten, err = cascadeUser(ctx, txn, user)
		if err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	observeCascade(relationUserSprint, rewritten, started)
	return updated, nil
}

// Delete removes the user. Sprints keep their operator copy.
func (r *Users) Delete(ctx context.Context, id string) error {
	return r.remove(ctx, docstore.Users, id)
}

func (r *Users) List(ctx context.Context, page, size int) ([]models.User, error) {
	return list[models.User](ctx, r.store, docstore.Users, page, size)
}

func (r *Users) Search(ctx context.Context, username string, page, size int) ([]models.User, error) {
	return search[models.User](ctx, r.store, docstore.Users, "username", username, page, size)
}

// FindByUsername looks a user up by exact username.
func (r *Users) FindByUsername(ctx context.Context, username string) (models.User, error) {
	return findByUsername(ctx, r.store, strings.TrimSpace(username))
}

// EnsureAdmin creates an Admin with the given credentials unless a user with
// that username already exists. It reports whether a user was created.
func (r *Users) EnsureAdmin(ctx context.Context, username, password string) (models.User, bool, error) {
	existing, err := r.FindByUsername(ctx, username)
	if err == nil {
		return existing, false, nil
	}
	if !isNotFound(err) {
		return models.User{}, false, err
	}

	user, err := r.Create(ctx, UserInput{Username: username, Password: password, Role: models.RoleAdmin})
	if err != nil {
		return models.User{}, false, err
	}
	applog.Info(ctx, "admin user created", "username", user.Username)
	return user, true, nil
}

func findByUsername(ctx context.Context, r docstore.Reader, username string) (models.User, error) {
	user, ok, err := first(ctx, r, docstore.Users, func(u models.User) bool {
		return u.Username == username
	})
	if err != nil {
		return models.User{}, err
	}
	if !ok {
		return models.User{}, notFound(docstore.Users, username)
	}
	return user, nil
}

// usernameFree fails when username belongs to a user other than selfID.
func usernameFree(ctx context.Context, r docstore.Reader, username, selfID string) error {
	existing, err := findByUsername(ctx, r, username)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != selfID {
		return invalid("username %q is taken", username)
	}
	return nil
}
