package web

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/go-while/go-stockblog/internal/database"
	"github.com/go-while/go-stockblog/internal/models"
)

const flashTitleRequired = "Title is required!"

// PostFormData represents data for the create and edit forms.
// Post holds the submitted values when a form is redisplayed.
type PostFormData struct {
	TemplateData
	Post *models.Post
}

func (s *WebServer) createPage(c *gin.Context) {
	s.renderTemplate(c, http.StatusOK, "create.html", PostFormData{
		TemplateData: s.getBaseTemplateData(c, "Create a New Post"),
		Post:         &models.Post{},
	})
}

func (s *WebServer) createSubmit(c *gin.Context) {
	title := c.PostForm("title")
	content := c.PostForm("content")

	id, err := s.Store.CreatePost(c.Request.Context(), title, content)
	switch {
	case errors.Is(err, database.ErrTitleRequired):
		s.addFlash(c, flashTitleRequired)
		s.renderTemplate(c, http.StatusOK, "create.html", PostFormData{
			TemplateData: s.getBaseTemplateData(c, "Create a New Post"),
			Post:         &models.Post{Title: title, Content: content},
		})
		return
	case err != nil:
		s.renderError(c, http.StatusInternalServerError, "Failed to create post", err.Error())
		return
	}

	log.Printf("[WEB]: req=%s created post %d", requestID(c), id)
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *WebServer) editPage(c *gin.Context) {
	post, ok := s.loadPost(c)
	if !ok {
		return
	}
	s.renderTemplate(c, http.StatusOK, "edit.html", PostFormData{
		TemplateData: s.getBaseTemplateData(c, fmt.Sprintf(`Edit "%s"`, post.Title)),
		Post:         post,
	})
}

func (s *WebServer) editSubmit(c *gin.Context) {
	post, ok := s.loadPost(c)
	if !ok {
		return
	}

	title := c.PostForm("title")
	content := c.PostForm("content")

	err := s.Store.UpdatePost(c.Request.Context(), post.ID, title, content)
	switch {
	case errors.Is(err, database.ErrTitleRequired):
		s.addFlash(c, flashTitleRequired)
		s.renderTemplate(c, http.StatusOK, "edit.html", PostFormData{
			TemplateData: s.getBaseTemplateData(c, fmt.Sprintf(`Edit "%s"`, post.Title)),
			Post:         &models.Post{ID: post.ID, Title: title, Content: content, Created: post.Created},
		})
		return
	case err != nil:
		s.renderStoreError(c, err)
		return
	}

	log.Printf("[WEB]: req=%s updated post %d", requestID(c), post.ID)
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *WebServer) deleteSubmit(c *gin.Context) {
	id, ok := s.postID(c)
	if !ok {
		return
	}

	deleted, err := s.Store.DeletePost(c.Request.Context(), id)
	if err != nil {
		s.renderStoreError(c, err)
		return
	}

	log.Printf("[WEB]: req=%s deleted post %d", requestID(c), id)
	s.addFlash(c, fmt.Sprintf(`"%s" was successfully deleted!`, deleted.Title))
	c.Redirect(http.StatusSeeOther, "/")
}
