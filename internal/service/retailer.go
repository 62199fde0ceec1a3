package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/retail_market/internal/hash"
	"github.com/Skotchmaster/retail_market/internal/logging"
	"github.com/Skotchmaster/retail_market/internal/models"
	"github.com/Skotchmaster/retail_market/internal/store"
	"github.com/Skotchmaster/retail_market/internal/tokens"
	"github.com/Skotchmaster/retail_market/internal/transport"
)

var errRetailerTaken = fail(ErrConflict, "Retailer with this username or email already exists")

func (s *Service) Register(ctx context.Context, req transport.RegisterRequest) (*transport.AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "retailer.register")

	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" || email == "" || req.Password == "" {
		return nil, fail(ErrValidation, "Username, email, and password are required")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	business := strings.TrimSpace(req.BusinessName)
	if business == "" {
		business = username + "'s Store"
	}

	r := models.Retailer{
		Username:     username,
		Email:        email,
		PasswordHash: pwHash,
		BusinessName: business,
		CreatedAt:    s.now(),
	}

	err = s.Store.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.RetailerByUsername(username); err == nil {
			return errRetailerTaken
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if _, err := tx.RetailerByEmail(email); err == nil {
			return errRetailerTaken
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := tx.CreateRetailer(&r); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return errRetailerTaken
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.Info("retailer_registered", "retailer_id", r.ID)
	return s.authResult(r)
}

func (s *Service) Login(ctx context.Context, req transport.LoginRequest) (*transport.AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "retailer.login")

	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return nil, fail(ErrValidation, "Username and password are required")
	}

	var r *models.Retailer
	err := s.Store.View(ctx, func(tx store.Tx) error {
		var err error
		r, err = tx.RetailerByUsername(strings.TrimSpace(req.Username))
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "unknown username")
			return nil, fail(ErrInvalidCredentials, "Invalid credentials")
		}
		return nil, err
	}

	if !hash.CheckPassword(r.PasswordHash, req.Password) {
		l.Warn("login_failed", "status", 401, "reason", "wrong password", "retailer_id", r.ID)
		return nil, fail(ErrInvalidCredentials, "Invalid credentials")
	}

	return s.authResult(*r)
}

func (s *Service) ResolveID(ctx context.Context, username string) (uint, error) {
	var id uint
	err := s.Store.View(ctx, func(tx store.Tx) error {
		r, err := tx.RetailerByUsername(username)
		if err != nil {
			return notFound(err, "Retailer not found")
		}
		id = r.ID
		return nil
	})
	return id, err
}

func (s *Service) authResult(r models.Retailer) (*transport.AuthResult, error) {
	token, err := tokens.Issue(s.JWTSecret, r.ID, r.Username, s.now(), s.tokenTTL())
	if err != nil {
		return nil, err
	}
	return &transport.AuthResult{
		Retailer: transport.RetailerSummary{
			ID:           r.ID,
			Username:     r.Username,
			Email:        r.Email,
			BusinessName: r.BusinessName,
		},
		Token: token,
	}, nil
}
