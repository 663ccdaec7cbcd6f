package main

import (
	"time"

	"github.com/muhammadolammi/polypopcareers/internal/config"
	"github.com/muhammadolammi/polypopcareers/internal/logging"
	"github.com/muhammadolammi/polypopcareers/internal/storage"
)

type ServerConfig struct {
	Env        *config.Env
	Store      storage.Store
	Dispatcher *Dispatcher
	Logger     *logging.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type HomePage struct {
	Company   string
	Date      string
	SystemID  string
	PrivateIP string
	Year      int
}

type CareersPage struct {
	Company   string
	MaxUpload string
	Year      int
}

type ConfirmationPage struct {
	Company  string
	Name     string
	Position string
	Key      string
	Year     int
}

type ErrorPage struct {
	Company string
	Status  int
	Title   string
	Message string
	Fields  []string
	Year    int
}
