package chattest

import (
	"net/http"
	"strconv"

	"github.com/ageniuscoder/mmchat/client/internal/chat"
	"github.com/gin-gonic/gin"
)

type pageReq struct {
	Page int `form:"page"`
}

func (s *Server) chatDetails(c *gin.Context) {
	uid := MustUserID(c)

	s.mu.Lock()
	r, ok := s.rooms[c.Param("id")]
	var body gin.H
	if ok && contains(r.members, uid) {
		body = gin.H{
			"_id":       r.id,
			"name":      r.name,
			"groupChat": r.groupChat,
			"members":   append([]string(nil), r.members...),
		}
	}
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Chat not found"})
		return
	}
	if body == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "chat": body})
}

// listMessages pages from the newest end: page 1 holds the latest messages,
// each page ordered oldest first.
func (s *Server) listMessages(c *gin.Context) {
	uid := MustUserID(c)
	var q pageReq
	_ = c.BindQuery(&q)
	if q.Page <= 0 {
		q.Page = 1
	}

	s.mu.Lock()
	r, ok := s.rooms[c.Param("id")]
	if !ok || !contains(r.members, uid) {
		s.mu.Unlock()
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		return
	}
	size := s.PageSize
	total := (len(r.messages) + size - 1) / size
	end := len(r.messages) - (q.Page-1)*size
	start := end - size
	if start < 0 {
		start = 0
	}
	var page []chat.Message
	if end > 0 {
		page = append(page, r.messages[start:end]...)
	}
	s.mu.Unlock()

	if page == nil {
		page = []chat.Message{}
	}
	c.Header("X-Total-Pages", strconv.Itoa(total))
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": page, "totalPages": total})
}
