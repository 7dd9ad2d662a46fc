// Command seed fills a running API with demo mechanics, jobs and invoices.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/icdtuning/garage/internal/models"
	log "github.com/sirupsen/logrus"
)

var errUsernameTaken = errors.New("username already registered")

// apiClient talks to the garage API with an optional bearer token.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}}
}

// apiError is a non-2xx response from the API.
type apiError struct {
	Status int
	Detail string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.Status, e.Detail)
}

func (c *apiClient) do(method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &apiError{Status: resp.StatusCode, Detail: e.Detail}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *apiClient) register(req models.RegisterRequest) error {
	err := c.do(http.MethodPost, "/auth/register", req, nil)
	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest && apiErr.Detail == "Username already registered" {
		return errUsernameTaken
	}
	return err
}

// login stores the returned token on the client.
func (c *apiClient) login(username, password string) error {
	var resp models.LoginResponse
	if err := c.do(http.MethodPost, "/auth/login", models.LoginRequest{Username: username, Password: password}, &resp); err != nil {
		return err
	}
	c.token = resp.AccessToken
	return nil
}

// ensureUser registers a user unless the username already exists.
func (c *apiClient) ensureUser(req models.RegisterRequest) error {
	err := c.register(req)
	if errors.Is(err, errUsernameTaken) {
		log.WithField("username", req.Username).Info("User already exists")
		return nil
	}
	if err == nil {
		log.WithFields(log.Fields{"username": req.Username, "role": req.Role}).Info("Registered user")
	}
	return err
}

var (
	firstNames = []string{"Arjun", "Karthik", "Priya", "Divya", "Suresh", "Lakshmi", "Vikram", "Meena", "Rahul", "Anand"}
	lastNames  = []string{"Kumar", "Raman", "Iyer", "Reddy", "Nair", "Subramanian", "Krishnan", "Menon"}
	cars       = map[string][]string{
		"Volkswagen": {"Polo GT", "Virtus", "Taigun"},
		"Skoda":      {"Octavia", "Slavia", "Kushaq"},
		"Hyundai":    {"i20 N Line", "Verna", "Creta"},
		"Honda":      {"City", "Civic"},
		"BMW":        {"330i", "M340i", "X1"},
	}
	works = []string{
		"Stage 1 ECU remap and dyno run",
		"Full service with oil and filter change",
		"DSG tune and clutch adaptation",
		"Brake pad replacement and disc skim",
		"Intake and downpipe install with custom map",
		"Diagnosis of check engine light",
	}
)

func pick[T any](rng *rand.Rand, xs []T) T {
	return xs[rng.Intn(len(xs))]
}

// demoJob builds a plausible job payload assigned to mechanicID.
func demoJob(rng *rand.Rand, mechanicID string, now time.Time) map[string]interface{} {
	brands := make([]string, 0, len(cars))
	for b := range cars {
		brands = append(brands, b)
	}
	slices.Sort(brands)
	brand := pick(rng, brands)

	entry := now.AddDate(0, 0, -rng.Intn(14))
	return map[string]interface{}{
		"customer_name":        pick(rng, firstNames) + " " + pick(rng, lastNames),
		"contact_number":       fmt.Sprintf("+91 9%04d %05d", rng.Intn(10000), rng.Intn(100000)),
		"car_brand":            brand,
		"car_model":            pick(rng, cars[brand]),
		"year":                 2015 + rng.Intn(10),
		"registration_number":  fmt.Sprintf("TN%02d%c%c%04d", 1+rng.Intn(99), 'A'+rune(rng.Intn(26)), 'A'+rune(rng.Intn(26)), rng.Intn(10000)),
		"vin":                  fmt.Sprintf("WVW%014d", rng.Int63n(1e14)),
		"kms":                  strconv.Itoa(5000 + rng.Intn(150000)),
		"entry_date":           entry.Format("2006-01-02"),
		"estimated_delivery":   entry.AddDate(0, 0, 2+rng.Intn(5)).Format(time.RFC3339),
		"work_description":     pick(rng, works),
		"assigned_mechanic_id": mechanicID,
	}
}

// demoInvoice returns invoice charges for jobID.
func demoInvoice(rng *rand.Rand, jobID string) map[string]interface{} {
	return map[string]interface{}{
		"job_id":         jobID,
		"labour_charges": 500 + 100*rng.Intn(20),
		"parts": []map[string]interface{}{
			{"part_name": "Engine Oil 5W-40", "part_charges": 3200},
			{"part_name": "Oil Filter", "part_charges": 450},
		},
		"tuning_charges": 15000 * rng.Intn(2),
		"others_charges": 250,
	}
}

type seedConfig struct {
	managerUser     string
	managerPassword string
	mechanics       int
	jobs            int
}

type seedResult struct {
	Mechanics int
	Jobs      int
	Invoices  int
}

// seed registers the manager and mechanics, then creates jobs spread over
// the workflow. Completed jobs get an invoice.
func seed(c *apiClient, cfg seedConfig, rng *rand.Rand, now time.Time) (seedResult, error) {
	var res seedResult

	if err := c.ensureUser(models.RegisterRequest{
		Username: cfg.managerUser,
		Password: cfg.managerPassword,
		FullName: "Workshop Manager",
		Role:     models.RoleManager,
	}); err != nil {
		return res, fmt.Errorf("register manager: %w", err)
	}
	for i := 1; i <= cfg.mechanics; i++ {
		err := c.ensureUser(models.RegisterRequest{
			Username: fmt.Sprintf("mechanic%d", i),
			Password: "mechanic123",
			FullName: pick(rng, firstNames) + " " + pick(rng, lastNames),
			Role:     models.RoleMechanic,
		})
		if err != nil {
			return res, fmt.Errorf("register mechanic %d: %w", i, err)
		}
	}

	if err := c.login(cfg.managerUser, cfg.managerPassword); err != nil {
		return res, fmt.Errorf("login: %w", err)
	}

	var mechanics []models.User
	if err := c.do(http.MethodGet, "/mechanics", nil, &mechanics); err != nil {
		return res, fmt.Errorf("list mechanics: %w", err)
	}
	if len(mechanics) == 0 {
		return res, errors.New("no mechanics available")
	}
	res.Mechanics = len(mechanics)

	statuses := models.Statuses()
	for i := 0; i < cfg.jobs; i++ {
		mechanic := mechanics[i%len(mechanics)]

		var job models.Job
		if err := c.do(http.MethodPost, "/jobs", demoJob(rng, mechanic.ID.Hex(), now), &job); err != nil {
			log.WithError(err).Error("Failed to create job")
			continue
		}
		res.Jobs++

		status := pick(rng, statuses)
		if status != job.Status {
			if err := c.do(http.MethodPatch, "/jobs/"+job.ID.Hex(), map[string]interface{}{"status": status}, &job); err != nil {
				log.WithError(err).WithField("job_id", job.ID.Hex()).Error("Failed to update job status")
				continue
			}
		}

		log.WithFields(log.Fields{
			"job_id":   job.ID.Hex(),
			"vehicle":  job.Vehicle(),
			"status":   job.Status,
			"mechanic": mechanic.Username,
		}).Info("Created job")

		if !job.IsCompleted() {
			continue
		}
		var inv models.Invoice
		if err := c.do(http.MethodPost, "/invoices", demoInvoice(rng, job.ID.Hex()), &inv); err != nil {
			log.WithError(err).WithField("job_id", job.ID.Hex()).Error("Failed to create invoice")
			continue
		}
		res.Invoices++
		log.WithFields(log.Fields{"invoice_number": inv.InvoiceNumber, "grand_total": inv.GrandTotal}).Info("Created invoice")
	}
	return res, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	apiURL := getEnv("API_BASE_URL", "http://localhost:8080/api")
	cfg := seedConfig{
		managerUser:     getEnv("SEED_MANAGER_USER", "manager"),
		managerPassword: getEnv("SEED_MANAGER_PASSWORD", "manager123"),
		mechanics:       getEnvInt("SEED_MECHANICS", 3),
		jobs:            getEnvInt("SEED_JOBS", 12),
	}

	log.WithFields(log.Fields{
		"api_url":   apiURL,
		"mechanics": cfg.mechanics,
		"jobs":      cfg.jobs,
	}).Info("Seeding demo data")

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	res, err := seed(newAPIClient(apiURL), cfg, rng, time.Now().UTC())
	if err != nil {
		log.WithError(err).Fatal("Seeding failed")
	}

	log.WithFields(log.Fields{
		"mechanics": res.Mechanics,
		"jobs":      res.Jobs,
		"invoices":  res.Invoices,
	}).Info("Seeding completed")
}
