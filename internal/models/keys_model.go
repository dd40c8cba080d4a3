package models

import "time"

type ApiKey struct {
	ID        int64     `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	ApiKey    string    `db:"api_key" json:"api_key"`
	ApiSecret string    `db:"api_secret" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
