// Command seed fills a running instance with demo data: one school, a
// director account, rosters, an open evaluation and a batch of access codes.
// Useful for local frontend work and manual testing.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"
)

type options struct {
	baseURL       string
	adminEmail    string
	adminPassword string
}

type client struct {
	http  *http.Client
	base  string
	token string
}

func main() {
	opts := options{}
	flag.StringVar(&opts.baseURL, "base-url", "http://localhost:8080/api/v1", "API base URL")
	flag.StringVar(&opts.adminEmail, "admin-email", "admin@example.com", "admin login")
	flag.StringVar(&opts.adminPassword, "admin-password", "", "admin password")
	flag.Parse()

	if opts.adminPassword == "" {
		log.Fatal("missing -admin-password")
	}

	c := &client{http: &http.Client{Timeout: 10 * time.Second}, base: opts.baseURL}
	if err := c.login(opts.adminEmail, opts.adminPassword); err != nil {
		log.Fatalf("login failed: %v", err)
	}

	school := map[string]any{}
	if err := c.post("/schools", map[string]any{"name": "Gymnazium Demo", "city": "Praha"}, &school); err != nil {
		log.Fatalf("create school: %v", err)
	}
	schoolID := school["id"].(string)
	log.Printf("school %s", schoolID)

	if err := c.post("/auth/register", map[string]any{
		"email":      "director@demo.local",
		"password":   "demo-password-1",
		"first_name": "Dana",
		"last_name":  "Reditelka",
		"school_id":  schoolID,
	}, nil); err != nil {
		log.Fatalf("create director: %v", err)
	}

	var teacherIDs, subjectIDs, classIDs []string
	for _, name := range []string{"Jan Dvorak", "Petra Svobodova", "Karel Novy"} {
		created := map[string]any{}
		if err := c.post("/teachers", map[string]any{"school_id": schoolID, "name": name}, &created); err != nil {
			log.Fatalf("create teacher: %v", err)
		}
		teacherIDs = append(teacherIDs, created["id"].(string))
	}
	for _, name := range []string{"Mathematics", "Czech", "Physics"} {
		created := map[string]any{}
		if err := c.post("/subjects", map[string]any{"school_id": schoolID, "name": name}, &created); err != nil {
			log.Fatalf("create subject: %v", err)
		}
		subjectIDs = append(subjectIDs, created["id"].(string))
	}
	for _, name := range []string{"3.A", "3.B"} {
		created := map[string]any{}
		if err := c.post("/classes", map[string]any{"school_id": schoolID, "name": name}, &created); err != nil {
			log.Fatalf("create class: %v", err)
		}
		classIDs = append(classIDs, created["id"].(string))
	}

	for _, classID := range classIDs {
		assignments := make([]map[string]any, 0, len(teacherIDs))
		for i := range teacherIDs {
			assignments = append(assignments, map[string]any{
				"teacher_id": teacherIDs[i],
				"subject_id": subjectIDs[i],
			})
		}
		if err := c.put("/classes/"+classID+"/assignments", map[string]any{"assignments": assignments}, nil); err != nil {
			log.Fatalf("assign class: %v", err)
		}
	}

	evaluation := map[string]any{}
	now := time.Now()
	if err := c.post("/evaluations", map[string]any{
		"school_id":  schoolID,
		"name":       "Demo term feedback",
		"start_date": now.Format(time.RFC3339),
		"end_date":   now.AddDate(0, 0, 14).Format(time.RFC3339),
	}, &evaluation); err != nil {
		log.Fatalf("create evaluation: %v", err)
	}
	evaluationID := evaluation["id"].(string)

	var codes []map[string]any
	if err := c.post("/evaluations/"+evaluationID+"/codes", map[string]any{
		"items": []map[string]any{
			{"class_name": "3.A", "count": 5},
			{"class_name": "3.B", "count": 5},
		},
	}, &codes); err != nil {
		log.Fatalf("issue codes: %v", err)
	}

	log.Printf("evaluation %s with %d codes:", evaluationID, len(codes))
	for _, code := range codes {
		log.Printf("  %s (%s)", code["code"], code["class_name"])
	}
}

func (c *client) login(email, password string) error {
	result := map[string]any{}
	if err := c.do(http.MethodPost, "/auth/login", map[string]any{"email": email, "password": password}, &result); err != nil {
		return err
	}
	token, ok := result["access_token"].(string)
	if !ok || token == "" {
		return fmt.Errorf("no access token in login response")
	}
	c.token = token
	return nil
}

func (c *client) post(path string, payload, result any) error {
	return c.do(http.MethodPost, path, payload, result)
}

func (c *client) put(path string, payload, result any) error {
	return c.do(http.MethodPut, path, payload, result)
}

func (c *client) do(method, path string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(method, c.base+path, bytes.NewReader(body))
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

	var envelope struct {
		Data  json.RawMessage `json:"data"`
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("%s %s: status %d, bad body: %w", method, path, resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 {
		if envelope.Error != nil {
			return fmt.Errorf("%s %s: %s (%s)", method, path, envelope.Error.Message, envelope.Error.Code)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if result != nil && len(envelope.Data) > 0 {
		return json.Unmarshal(envelope.Data, result)
	}
	return nil
}
