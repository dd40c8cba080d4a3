package middleware

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/feedqueue-api/internal/repository"
)

// TxBeginner is satisfied by *sql.DB.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Transaction runs every mutating request in one database transaction. It
// commits when the handler succeeds with a status below 400.
func Transaction(db TxBeginner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		ctx := c.UserContext()
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			slog.Error(err.Error())
			return fiber.NewError(fiber.StatusServiceUnavailable, "unable to start transaction")
		}
		c.SetUserContext(repository.WithTx(ctx, tx))
		defer c.SetUserContext(ctx)
		// A panicking handler leaves the commit below unreached.
		defer rollback(tx)

		if err := c.Next(); err != nil {
			return err
		}
		if c.Response().StatusCode() >= fiber.StatusBadRequest {
			return nil
		}
		if err := tx.Commit(); err != nil {
			slog.Error(err.Error())
			return err
		}
		return nil
	}
}

func rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
		slog.Error(err.Error())
	}
}
