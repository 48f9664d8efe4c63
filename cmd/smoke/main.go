package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"nutriadmin.org/internal/auth"
	"nutriadmin.org/internal/config"
)

// smoke drives self-registration, the temporary password exchange and an
// authenticated read against a running API in development mode.
func main() {
	log := logrus.New()

	base := os.Getenv(config.EnvPrefix + "SMOKE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	temporary := os.Getenv(config.EnvPrefix + "DEV_TEMPORARY_PASSWORD")
	if temporary == "" {
		temporary = config.Default().DevTemporaryPassword
	}

	client := resty.New().
		SetBaseURL(base).
		SetTimeout(10 * time.Second).
		SetHeader("Accept", "application/json")

	email := fmt.Sprintf("smoke-%s@nutriadmin.example", uuid.NewString()[:8])
	agencyName := "Smoke " + uuid.NewString()[:8]

	var registered struct {
		Message  string `json:"message"`
		AgencyID int64  `json:"agency_id"`
	}
	resp, err := client.R().
		SetBody(map[string]any{
			"agency": map[string]any{"name": agencyName, "is_active": true},
			"user":   map[string]any{"email": email, "first_name": "Smoke", "last_name": "Test"},
		}).
		SetResult(&registered).
		Post("/user/register-user-agency")
	mustStatus(log, "register", resp, err, http.StatusOK)

	resp, err = client.R().
		SetBody(map[string]string{"user_name": email, "password": temporary}).
		Post("/user/login")
	mustStatus(log, "login with temporary password", resp, err, http.StatusConflict)

	const password = "smoke-password-1"
	resp, err = client.R().
		SetQueryParams(map[string]string{
			"email":             email,
			"newPassword":       password,
			"temporaryPassword": temporary,
		}).
		Put("/user/update-temporal-password")
	mustStatus(log, "update temporal password", resp, err, http.StatusOK)

	var token auth.Token
	resp, err = client.R().
		SetBody(map[string]string{"user_name": email, "password": password}).
		SetResult(&token).
		Post("/user/login")
	mustStatus(log, "login", resp, err, http.StatusOK)

	resp, err = client.R().
		SetAuthToken(token.AccessToken).
		Get(fmt.Sprintf("/agency/get-agency-by-id/%d", registered.AgencyID))
	mustStatus(log, "get agency", resp, err, http.StatusOK)

	log.WithFields(logrus.Fields{
		"email":     email,
		"agency_id": registered.AgencyID,
	}).Info("smoke test passed")
}

func mustStatus(log *logrus.Logger, step string, resp *resty.Response, err error, want int) {
	if err != nil {
		log.WithError(err).Fatal(step)
	}
	if resp.StatusCode() != want {
		log.WithFields(logrus.Fields{
			"status": resp.StatusCode(),
			"want":   want,
			"body":   resp.String(),
		}).Fatal(step)
	}
}
