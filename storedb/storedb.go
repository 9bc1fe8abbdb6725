package storedb

import (
	"errors"

	"github.com/jackc/pgx/v4/pgxpool"
)

var Pool *pgxpool.Pool

func New(pool *pgxpool.Pool) error {
	if Pool != nil {
		return errors.New("db already initialised")
	}
	Pool = pool
	return nil
}
