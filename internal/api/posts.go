package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/khanhnv2901/seca-suite/internal/domain/post"
)

// postPayload carries the editable fields of a post
type postPayload struct {
	Title    string `json:"title"`
	Excerpt  string `json:"excerpt"`
	Content  string `json:"content"`
	Category string `json:"category"`
	ReadTime string `json:"readTime"`
}

func (p postPayload) toContent() post.Content {
	return post.Content{
		Title:    p.Title,
		Excerpt:  p.Excerpt,
		Body:     p.Content,
		Category: p.Category,
		ReadTime: p.ReadTime,
	}
}

type postView struct {
	ID string `json:"id"`
	postPayload
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newPostView(p *post.Post) postView {
	return postView{
		ID: p.ID(),
		postPayload: postPayload{
			Title:    p.Title(),
			Excerpt:  p.Excerpt(),
			Content:  p.Body(),
			Category: p.Category(),
			ReadTime: p.ReadTime(),
		},
		Author:    p.Author(),
		CreatedAt: p.CreatedAt(),
		UpdatedAt: p.UpdatedAt(),
	}
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.cfg.Blog.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	views := make([]postView, 0, len(posts))
	for _, p := range posts {
		views = append(views, newPostView(p))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	p, err := s.cfg.Blog.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPostView(p))
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var payload postPayload
	if !s.decodeJSON(w, r, &payload) {
		return
	}
	p, err := s.cfg.Blog.Create(r.Context(), sessionFrom(r.Context()), payload.toContent())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newPostView(p))
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	var payload postPayload
	if !s.decodeJSON(w, r, &payload) {
		return
	}
	p, err := s.cfg.Blog.Update(r.Context(), sessionFrom(r.Context()), mux.Vars(r)["id"], payload.toContent())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPostView(p))
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.Blog.Delete(r.Context(), sessionFrom(r.Context()), mux.Vars(r)["id"]); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
