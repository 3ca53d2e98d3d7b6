package model

import "time"

type User struct {
	TelegramID       int64
	Handle           string
	Username         string
	GoldBalance      int64
	RegistrationDate time.Time
}
