// Package bookclient calls the remote API's book collection endpoints.
package bookclient

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"bookshelf/internal/apiclient"
	"bookshelf/pkg/domain"
)

// Client calls the book collection endpoints of the remote API.
type Client struct {
	api *apiclient.Client
}

// NewClient constructs a book client against the API base URL.
func NewClient(baseURL string) *Client {
	return &Client{api: apiclient.New(baseURL)}
}

// BookInput carries the writable fields of a book record.
type BookInput struct {
	Title       string     `json:"title"`
	Author      string     `json:"author"`
	Description string     `json:"description,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

// List fetches one page of the collection.
func (c *Client) List(token string, page, limit int) ([]domain.Book, domain.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("limit", fmt.Sprint(limit))
	var resp listResponse
	if err := c.api.DoJSON(http.MethodGet, "/book?"+q.Encode(), token, nil, &resp); err != nil {
		return nil, domain.Pagination{}, err
	}
	return resp.Data, resp.Pagination, nil
}

// Get fetches a single book by ID.
func (c *Client) Get(token, id string) (domain.Book, error) {
	var book domain.Book
	path := "/book/" + url.PathEscape(id)
	if err := c.api.DoJSON(http.MethodGet, path, token, nil, &book); err != nil {
		return domain.Book{}, err
	}
	return book, nil
}

// Create adds a new book to the collection.
func (c *Client) Create(token string, input BookInput) (domain.Book, error) {
	var book domain.Book
	if err := c.api.DoJSON(http.MethodPost, "/book", token, input, &book); err != nil {
		return domain.Book{}, err
	}
	return book, nil
}

// Update replaces the writable fields of an existing book.
func (c *Client) Update(token, id string, input BookInput) (domain.Book, error) {
	var book domain.Book
	path := "/book/" + url.PathEscape(id)
	if err := c.api.DoJSON(http.MethodPut, path, token, input, &book); err != nil {
		return domain.Book{}, err
	}
	return book, nil
}

// Delete removes a book from the collection.
func (c *Client) Delete(token, id string) error {
	path := "/book/" + url.PathEscape(id)
	return c.api.DoJSON(http.MethodDelete, path, token, nil, nil)
}

type listResponse struct {
	Data       []domain.Book     `json:"data"`
	Pagination domain.Pagination `json:"pagination"`
}
