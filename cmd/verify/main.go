// Command verify runs an end-to-end smoke test against a running server:
// health, add, data, update, stats, delete and optionally clear.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/artarona/Administrador/internal/config"
	"github.com/artarona/Administrador/internal/logging"
)

type client struct {
	baseURL string
	token   string
	http    *http.Client
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, err
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s: %w (body %q)", method, path, err, raw)
		}
	}
	return resp.StatusCode, nil
}

type step struct {
	name string
	run  func(ctx context.Context) error
}

func expect(status, want int, err error) error {
	if err != nil {
		return err
	}
	if status != want {
		return fmt.Errorf("expected HTTP %d, got %d", want, status)
	}
	return nil
}

func main() {
	baseURL := pflag.String("base-url", "http://localhost:8080", "server base URL")
	token := pflag.String("token", "", "admin token (defaults to ADMIN_TOKEN)")
	envFile := pflag.String("env-file", ".env", "dotenv file used to resolve the admin token")
	clearAll := pflag.Bool("clear", false, "also run DELETE /admin/clear (removes every contact)")
	timeout := pflag.Duration("timeout", 10*time.Second, "per-request timeout")
	pflag.Parse()

	logging.Setup()

	if *token == "" {
		cfg, err := config.Load(*envFile)
		if err != nil {
			logging.Fatal("load config failed", "error", err)
		}
		*token = cfg.Admin.Token
	}
	if *token == "" {
		logging.Fatal("no admin token: pass --token or set ADMIN_TOKEN")
	}

	c := &client{
		baseURL: strings.TrimRight(*baseURL, "/"),
		token:   *token,
		http:    &http.Client{Timeout: *timeout},
	}
	email := fmt.Sprintf("verify-%d@example.com", time.Now().UnixNano())

	steps := []step{
		{"health", func(ctx context.Context) error {
			var resp struct {
				Status   string `json:"status"`
				Database string `json:"database"`
			}
			status, err := c.do(ctx, http.MethodGet, "/health", nil, &resp)
			if err := expect(status, http.StatusOK, err); err != nil {
				return err
			}
			if resp.Database != "connected" {
				return fmt.Errorf("database %q", resp.Database)
			}
			return nil
		}},
		{"add", func(ctx context.Context) error {
			var resp struct {
				Success bool   `json:"success"`
				Email   string `json:"email"`
			}
			status, err := c.do(ctx, http.MethodPost, "/admin/add", map[string]string{
				"nombre": "Verificación", "email": email, "telefono": "555", "mensaje": "smoke test",
			}, &resp)
			if err := expect(status, http.StatusCreated, err); err != nil {
				return err
			}
			if resp.Email != email {
				return fmt.Errorf("expected email %s, got %s", email, resp.Email)
			}
			return nil
		}},
		{"duplicate", func(ctx context.Context) error {
			status, err := c.do(ctx, http.MethodPost, "/admin/add", map[string]string{
				"nombre": "Otro", "email": strings.ToUpper(email),
			}, nil)
			return expect(status, http.StatusBadRequest, err)
		}},
		{"data", func(ctx context.Context) error {
			found, err := c.find(ctx, email)
			if err != nil {
				return err
			}
			if found == nil {
				return fmt.Errorf("%s not listed", email)
			}
			created, updated, err := found.times()
			if err != nil {
				return err
			}
			if !created.Equal(updated) {
				return fmt.Errorf("fresh contact has different timestamps: %s / %s", found.CreatedAt, found.UpdatedAt)
			}
			return nil
		}},
		{"update", func(ctx context.Context) error {
			status, err := c.do(ctx, http.MethodPut, "/admin/update", map[string]string{
				"email": email, "nombre": "Verificación 2", "telefono": "556", "mensaje": "updated",
			}, nil)
			if err := expect(status, http.StatusOK, err); err != nil {
				return err
			}
			found, err := c.find(ctx, email)
			if err != nil {
				return err
			}
			if found == nil || found.Name != "Verificación 2" {
				return fmt.Errorf("update not visible: %+v", found)
			}
			created, updated, err := found.times()
			if err != nil {
				return err
			}
			if !updated.After(created) {
				return fmt.Errorf("fecha_actualizacion not refreshed")
			}
			return nil
		}},
		{"stats", func(ctx context.Context) error {
			var resp struct {
				Total int64 `json:"total"`
			}
			status, err := c.do(ctx, http.MethodGet, "/admin/stats", nil, &resp)
			if err := expect(status, http.StatusOK, err); err != nil {
				return err
			}
			if resp.Total < 1 {
				return fmt.Errorf("expected total >= 1, got %d", resp.Total)
			}
			return nil
		}},
		{"delete", func(ctx context.Context) error {
			status, err := c.do(ctx, http.MethodDelete, "/admin/delete", map[string]string{"email": email}, nil)
			if err := expect(status, http.StatusOK, err); err != nil {
				return err
			}
			status, err = c.do(ctx, http.MethodDelete, "/admin/delete", map[string]string{"email": email}, nil)
			return expect(status, http.StatusNotFound, err)
		}},
		{"unauthorized", func(ctx context.Context) error {
			anon := &client{baseURL: c.baseURL, token: "wrong", http: c.http}
			status, err := anon.do(ctx, http.MethodGet, "/admin/data", nil, nil)
			return expect(status, http.StatusUnauthorized, err)
		}},
	}
	if *clearAll {
		steps = append(steps, step{"clear", func(ctx context.Context) error {
			var resp struct {
				CountDeleted int64 `json:"count_deleted"`
			}
			status, err := c.do(ctx, http.MethodDelete, "/admin/clear", nil, &resp)
			if err := expect(status, http.StatusOK, err); err != nil {
				return err
			}
			slog.Info("cleared", "count_deleted", resp.CountDeleted)
			return nil
		}})
	}

	failed := 0
	for _, s := range steps {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		err := s.run(ctx)
		cancel()
		if err != nil {
			failed++
			slog.Error("step failed", "step", s.name, "error", err)
			continue
		}
		slog.Info("step ok", "step", s.name)
	}
	if failed > 0 {
		slog.Error("verification failed", "failed", failed, "total", len(steps))
		os.Exit(1)
	}
	slog.Info("verification passed", "steps", len(steps))
}

// listedContact mirrors the wire shape of a contact. Timestamps stay strings
// because an absent one is sent as "".
type listedContact struct {
	Name      string `json:"nombre"`
	Email     string `json:"email"`
	CreatedAt string `json:"fecha_creacion"`
	UpdatedAt string `json:"fecha_actualizacion"`
}

func (lc *listedContact) times() (created, updated time.Time, err error) {
	if created, err = time.Parse(time.RFC3339Nano, lc.CreatedAt); err != nil {
		return created, updated, fmt.Errorf("fecha_creacion: %w", err)
	}
	if updated, err = time.Parse(time.RFC3339Nano, lc.UpdatedAt); err != nil {
		return created, updated, fmt.Errorf("fecha_actualizacion: %w", err)
	}
	return created, updated, nil
}

func (c *client) find(ctx context.Context, email string) (*listedContact, error) {
	var resp struct {
		Success bool            `json:"success"`
		Data    []listedContact `json:"data"`
	}
	status, err := c.do(ctx, http.MethodGet, "/admin/data", nil, &resp)
	if err := expect(status, http.StatusOK, err); err != nil {
		return nil, err
	}
	for i := range resp.Data {
		if resp.Data[i].Email == email {
			return &resp.Data[i], nil
		}
	}
	return nil, nil
}
