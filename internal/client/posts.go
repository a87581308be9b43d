// ABOUTME: Post model and post CRUD calls against the blog API
// ABOUTME: Keeps each post's raw JSON so updates echo back fields the client does not model

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/ToniTF/clientcd/internal/session"
)

// ExcerptLength is how many characters of content list views show
const ExcerptLength = 150

// Post is a blog post. Raw holds the document exactly as the backend sent it.
type Post struct {
	ID      session.ID
	Title   string
	Content string
	Raw     json.RawMessage
}

func (p *Post) UnmarshalJSON(data []byte) error {
	var fields struct {
		ID      session.ID `json:"id"`
		Title   string     `json:"title"`
		Content string     `json:"content"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	p.ID = fields.ID
	p.Title = fields.Title
	p.Content = fields.Content
	p.Raw = append(json.RawMessage(nil), data...)
	return nil
}

func (p Post) MarshalJSON() ([]byte, error) {
	if len(p.Raw) > 0 {
		return p.Raw, nil
	}
	return json.Marshal(struct {
		ID      session.ID `json:"id,omitempty"`
		Title   string     `json:"title"`
		Content string     `json:"content"`
	}{p.ID, p.Title, p.Content})
}

// Excerpt returns the first n characters of the content, with an
// ellipsis when the content is longer
func (p Post) Excerpt(n int) string {
	runes := []rune(p.Content)
	if len(runes) <= n {
		return p.Content
	}
	return string(runes[:n]) + "..."
}

// PostInput is the editable part of a post
type PostInput struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
}

func (in PostInput) trimmed() PostInput {
	return PostInput{Title: strings.TrimSpace(in.Title), Content: strings.TrimSpace(in.Content)}
}

// ListPosts calls GET /posts. Concurrent calls in one session share a request.
func (c *Client) ListPosts(ctx context.Context) ([]Post, error) {
	generation := c.session.Generation()
	key := fmt.Sprintf("%d GET /posts", generation)

	v, err, _ := c.reads.Do(key, func() (interface{}, error) {
		var posts []Post
		if err := c.do(ctx, generation, http.MethodGet, "/posts", nil, &posts); err != nil {
			return nil, err
		}
		return posts, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Post), nil
}

// GetPost calls GET /posts/{id}. Concurrent calls in one session share a request.
func (c *Client) GetPost(ctx context.Context, id string) (*Post, error) {
	path := postPath(id)
	generation := c.session.Generation()
	key := fmt.Sprintf("%d GET %s", generation, path)

	v, err, _ := c.reads.Do(key, func() (interface{}, error) {
		var post Post
		if err := c.do(ctx, generation, http.MethodGet, path, nil, &post); err != nil {
			return nil, err
		}
		return &post, nil
	})
	if err != nil {
		return nil, err
	}
	post := *v.(*Post)
	return &post, nil
}

// CreatePost calls POST /posts
func (c *Client) CreatePost(ctx context.Context, in PostInput) (*Post, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	if !c.HasCredential() {
		return nil, ErrNotAuthenticated
	}

	var created Post
	if err := c.do(ctx, c.session.Generation(), http.MethodPost, "/posts", in, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdatePost calls PUT /posts/{id} with the full post document. Only title and
// content are replaced. A post without author data is assigned to editor when
// editor is non-nil.
func (c *Client) UpdatePost(ctx context.Context, post *Post, in PostInput, editor *session.Identity) (*Post, error) {
	in = in.trimmed()
	if err := check(in); err != nil {
		return nil, err
	}
	if !c.HasCredential() {
		return nil, ErrNotAuthenticated
	}

	doc, err := UpdateDocument(post, in, editor)
	if err != nil {
		return nil, err
	}

	var updated Post
	if err := c.do(ctx, c.session.Generation(), http.MethodPut, postPath(post.ID.String()), doc, &updated); err != nil {
		return nil, err
	}
	if len(updated.Raw) == 0 || updated.ID == "" {
		if err := updated.UnmarshalJSON(doc); err != nil {
			return nil, err
		}
	}
	return &updated, nil
}

// UpdateDocument builds the PUT body for post: the original document with
// title and content replaced, and the editor assigned as author when the post
// has none
func UpdateDocument(post *Post, in PostInput, editor *session.Identity) ([]byte, error) {
	doc := []byte(post.Raw)
	if len(doc) == 0 || !gjson.ValidBytes(doc) {
		raw, err := json.Marshal(post)
		if err != nil {
			return nil, err
		}
		doc = raw
	}

	doc, err := sjson.SetBytes(doc, "title", in.Title)
	if err != nil {
		return nil, fmt.Errorf("set title: %w", err)
	}
	doc, err = sjson.SetBytes(doc, "content", in.Content)
	if err != nil {
		return nil, fmt.Errorf("set content: %w", err)
	}

	if editor != nil && !hasAuthor(doc) {
		author := map[string]any{
			"id":       editor.ID,
			"email":    editor.Email,
			"username": editor.DisplayName(),
		}
		doc, err = sjson.SetBytes(doc, "author", author)
		if err != nil {
			return nil, fmt.Errorf("set author: %w", err)
		}
	}
	return doc, nil
}

// hasAuthor reports whether the document carries a non-empty author value
func hasAuthor(doc []byte) bool {
	author := gjson.GetBytes(doc, "author")
	switch {
	case !author.Exists(), author.Type == gjson.Null:
		return false
	case author.IsObject():
		return len(author.Map()) > 0
	default:
		return author.String() != ""
	}
}

// DeletePost calls DELETE /posts/{id}
func (c *Client) DeletePost(ctx context.Context, id string) error {
	if !c.HasCredential() {
		return ErrNotAuthenticated
	}
	return c.do(ctx, c.session.Generation(), http.MethodDelete, postPath(id), nil, nil)
}

func postPath(id string) string {
	return "/posts/" + url.PathEscape(id)
}
