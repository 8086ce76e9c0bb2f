package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sumii/sumii-core/internal/apierr"
)

// LawyerSummary is the search-result shape returned by the directory bridge,
// grounded on original_source/app/services/anwalt_service.py's
// search_lawyers response fields.
type LawyerSummary struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Specialty   string  `json:"specialty"`
	DistanceKM  float64 `json:"distanceKm"`
	Rating      float64 `json:"rating"`
}

// HandoffResult is returned once a case has been forwarded to a lawyer.
type HandoffResult struct {
	CaseID string `json:"caseId"`
}

// AnwaltService bridges to the external lawyer directory over plain
// net/http — the same transport the teacher's own vonage.go webhook client
// uses for outbound calls; no HTTP client library appears anywhere in the
// pack for this kind of simple REST bridge.
type AnwaltService struct {
	httpClient   *http.Client
	baseURL      string
	sharedSecret string
}

func NewAnwaltService(baseURL, sharedSecret string) *AnwaltService {
	return &AnwaltService{
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		baseURL:      baseURL,
		sharedSecret: sharedSecret,
	}
}

// SearchLawyers proxies a geo/specialty search to the directory.
func (a *AnwaltService) SearchLawyers(ctx context.Context, legalArea string, lat, lon float64) ([]LawyerSummary, error) {
	q := url.Values{}
	q.Set("legal_area", legalArea)
	q.Set("lat", fmt.Sprintf("%f", lat))
	q.Set("lon", fmt.Sprintf("%f", lon))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/lawyers/search?"+q.Encode(), nil)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "service.AnwaltService.SearchLawyers: build request", err)
	}
	a.authorize(req)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindRemoteDependency, "lawyer directory search failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, apierr.New(apierr.KindRemoteDependency, fmt.Sprintf("lawyer directory responded %d", resp.StatusCode))
	}

	var out []LawyerSummary
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apierr.Wrap(apierr.KindRemoteDependency, "lawyer directory returned malformed response", err)
	}
	return out, nil
}

type handoffRequest struct {
	ConversationID string `json:"conversationId"`
	SummaryURL     string `json:"summaryUrl"`
	UserMessage    string `json:"userMessage,omitempty"`
}

// Handoff forwards a case to a lawyer. A failed handoff is best-effort per
// spec §7 ("handoff failure keeps the connection in pending for later
// retry"); the caller decides what that means for the LawyerConnection row.
func (a *AnwaltService) Handoff(ctx context.Context, lawyerID int64, conversationID, summaryURL, userMessage string) (HandoffResult, error) {
	body, err := json.Marshal(handoffRequest{ConversationID: conversationID, SummaryURL: summaryURL, UserMessage: userMessage})
	if err != nil {
		return HandoffResult{}, apierr.Wrap(apierr.KindInternal, "service.AnwaltService.Handoff: marshal", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/lawyers/%d/handoff", a.baseURL, lawyerID), bytes.NewReader(body))
	if err != nil {
		return HandoffResult{}, apierr.Wrap(apierr.KindInternal, "service.AnwaltService.Handoff: build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	a.authorize(req)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return HandoffResult{}, apierr.Wrap(apierr.KindRemoteDependency, "lawyer directory handoff failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return HandoffResult{}, apierr.New(apierr.KindRemoteDependency, fmt.Sprintf("lawyer directory responded %d", resp.StatusCode))
	}

	var out HandoffResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return HandoffResult{}, apierr.Wrap(apierr.KindRemoteDependency, "lawyer directory returned malformed response", err)
	}
	return out, nil
}

func (a *AnwaltService) authorize(req *http.Request) {
	if a.sharedSecret != "" {
		req.Header.Set("X-API-Key", a.sharedSecret)
	}
}
