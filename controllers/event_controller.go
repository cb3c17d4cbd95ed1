package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"picstream-api/services"
)

// EventController receives domain events from the other services and hands
// them to the hub for fan-out. These endpoints sit on the internal network;
// the event producers do not forward end user credentials.
type EventController struct {
	hub *services.Hub
}

func NewEventController(hub *services.Hub) *EventController {
	return &EventController{hub: hub}
}

// ReceivePostEvent broadcasts a post, comment, or like event to every
// connected client.
func (ec *EventController) ReceivePostEvent(c *gin.Context) {
	var event services.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event.TargetUserID = 0
	ec.hub.Dispatch(c.Request.Context(), event)
	c.JSON(http.StatusOK, gin.H{"status": "dispatched"})
}

// ReceiveFriendshipEvent delivers a friendship event to one user's
// connections only.
func (ec *EventController) ReceiveFriendshipEvent(c *gin.Context) {
	var event services.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if event.TargetUserID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target_user_id is required"})
		return
	}

	ec.hub.Dispatch(c.Request.Context(), event)
	c.JSON(http.StatusOK, gin.H{"status": "dispatched"})
}
