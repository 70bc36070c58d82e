package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"narrated-quiz-service/internal/domain"
)

// QuestionClient is a question bank served by another deployment over HTTP.
type QuestionClient struct {
	baseURL string
	http    *http.Client
}

func NewQuestionClient(baseURL string, timeout time.Duration) *QuestionClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &QuestionClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// ResetRequest is the body of POST /api/progress/reset.
type ResetRequest struct {
	Selection domain.Selection `json:"selection"`
	LearnerID string           `json:"learnerId"`
}

func (c *QuestionClient) NextQuestion(ctx context.Context, sel domain.Selection, learnerID string) (domain.Question, error) {
	q := url.Values{}
	q.Set("grade", sel.Grade)
	q.Set("subject", sel.Subject)
	q.Set("term", sel.Term)
	q.Set("learnerId", learnerID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/questions/next?"+q.Encode(), nil)
	if err != nil {
		return domain.Question{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Question{}, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var question domain.Question
		if err := json.NewDecoder(resp.Body).Decode(&question); err != nil {
			return domain.Question{}, fmt.Errorf("%w: decode question: %v", domain.ErrNetwork, err)
		}
		return question, nil
	case http.StatusGone:
		return domain.Question{}, domain.ErrExhausted
	default:
		return domain.Question{}, fmt.Errorf("%w: %s", domain.ErrNetwork, statusError(resp))
	}
}

func (c *QuestionClient) ResetProgress(ctx context.Context, sel domain.Selection, learnerID string) error {
	body, err := json.Marshal(ResetRequest{Selection: sel, LearnerID: learnerID})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/progress/reset", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: %s", domain.ErrNetwork, statusError(resp))
	}
	return nil
}

func statusError(resp *http.Response) string {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}
