package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/go-while/go-stockblog/internal/models"
)

// IndexPageData represents data for the post list
type IndexPageData struct {
	TemplateData
	Posts []*models.Post
}

func (s *WebServer) indexPage(c *gin.Context) {
	posts, err := s.Store.ListPosts(c.Request.Context())
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, "Failed to load posts", err.Error())
		return
	}

	s.renderTemplate(c, http.StatusOK, "index.html", IndexPageData{
		TemplateData: s.getBaseTemplateData(c, "Posts"),
		Posts:        posts,
	})
}
