package auth

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"marksboard/backend/internal/shared"
)

// ErrTicketRejected is returned when the CAS server refuses a ticket.
var ErrTicketRejected = errors.New("cas ticket rejected")

const defaultEmailDomain = "iiit.ac.in"

// casResponse matches the CAS 2.0/3.0 serviceValidate body. Tags use local
// names so the cas: namespace prefix is ignored.
type casResponse struct {
	XMLName xml.Name    `xml:"serviceResponse"`
	Success *casSuccess `xml:"authenticationSuccess"`
	Failure *casFailure `xml:"authenticationFailure"`
}

type casSuccess struct {
	User       string         `xml:"user"`
	Attributes *casAttributes `xml:"attributes"`
}

type casAttributes struct {
	RollNo    string `xml:"RollNo"`
	Email     string `xml:"E-Mail"`
	FirstName string `xml:"FirstName"`
	LastName  string `xml:"LastName"`
}

type casFailure struct {
	Code    string `xml:"code,attr"`
	Message string `xml:",chardata"`
}

// CASClient validates service tickets against a CAS server.
type CASClient struct {
	baseURL        string
	defaultService string
	httpClient     *http.Client
}

// NewCASClient creates a client for the CAS server at baseURL.
// defaultService is used when a login does not name its own service URL.
func NewCASClient(baseURL, defaultService string, timeout time.Duration) *CASClient {
	return &CASClient{
		baseURL:        strings.TrimRight(baseURL, "/"),
		defaultService: defaultService,
		httpClient:     &http.Client{Timeout: timeout},
	}
}

// Validate exchanges a ticket for the authenticated identity.
func (c *CASClient) Validate(ctx context.Context, ticket, service string) (*shared.Identity, error) {
	if ticket == "" {
		return nil, fmt.Errorf("%w: no ticket provided", ErrTicketRejected)
	}
	if service == "" {
		service = c.defaultService
	}
	if service == "" {
		return nil, fmt.Errorf("%w: no service URL provided", ErrTicketRejected)
	}

	// 1. Call serviceValidate
	q := url.Values{}
	q.Set("ticket", ticket)
	q.Set("service", service)
	endpoint := c.baseURL + "/serviceValidate?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build cas request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call cas server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cas server returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read cas response: %w", err)
	}

	// 2. Parse
	var parsed casResponse
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrTicketRejected, err)
	}

	if parsed.Failure != nil {
		reason := strings.TrimSpace(parsed.Failure.Message)
		if reason == "" {
			reason = parsed.Failure.Code
		}
		return nil, fmt.Errorf("%w: %s", ErrTicketRejected, reason)
	}
	if parsed.Success == nil {
		return nil, fmt.Errorf("%w: no success response", ErrTicketRejected)
	}

	username := strings.TrimSpace(parsed.Success.User)
	if username == "" {
		return nil, fmt.Errorf("%w: empty user", ErrTicketRejected)
	}
	if parsed.Success.Attributes == nil {
		return nil, fmt.Errorf("%w: no attributes in response", ErrTicketRejected)
	}

	// 3. Map attributes, falling back to the username
	return identityFromAttributes(username, parsed.Success.Attributes), nil
}

func identityFromAttributes(username string, a *casAttributes) *shared.Identity {
	email := strings.TrimSpace(a.Email)
	if email == "" {
		email = username + "@" + defaultEmailDomain
	}
	roll := strings.TrimSpace(a.RollNo)
	if roll == "" {
		roll = username
	}
	first := strings.TrimSpace(a.FirstName)
	if first == "" {
		first = username
	}
	name := username
	if last := strings.TrimSpace(a.LastName); last != "" {
		name = first + " " + last
	}

	return &shared.Identity{
		Username:   username,
		RollNumber: roll,
		Email:      email,
		Name:       name,
	}
}
