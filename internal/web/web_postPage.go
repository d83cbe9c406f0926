package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/go-while/go-stockblog/internal/database"
	"github.com/go-while/go-stockblog/internal/models"
)

// PostPageData represents data for the single post page
type PostPageData struct {
	TemplateData
	Post *models.Post
}

func (s *WebServer) postPage(c *gin.Context) {
	post, ok := s.loadPost(c)
	if !ok {
		return
	}
	s.renderTemplate(c, http.StatusOK, "post.html", PostPageData{
		TemplateData: s.getBaseTemplateData(c, post.Title),
		Post:         post,
	})
}

// loadPost fetches the post named by :id. On false the error page is already rendered.
func (s *WebServer) loadPost(c *gin.Context) (*models.Post, bool) {
	id, ok := s.postID(c)
	if !ok {
		return nil, false
	}
	post, err := s.Store.GetPost(c.Request.Context(), id)
	if err != nil {
		s.renderStoreError(c, err)
		return nil, false
	}
	return post, true
}

// renderStoreError maps post store failures to 404 or 500
func (s *WebServer) renderStoreError(c *gin.Context, err error) {
	if errors.Is(err, database.ErrPostNotFound) {
		s.renderError(c, http.StatusNotFound, "Post not found", err.Error())
		return
	}
	s.renderError(c, http.StatusInternalServerError, "Database error", err.Error())
}
