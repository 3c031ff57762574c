package realtime

import (
	"net/http"
	"time"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ClientMessage struct {
	BaseMessage
	Subscribe   *Subscribe   `json:"subscribe,omitempty"`
	Unsubscribe *Unsubscribe `json:"unsubscribe,omitempty"`
	UserId      string       `json:"-"`
	client      *Client      `json:"-"`
}

type Subscribe struct {
	Table  string    `json:"table"`
	Event  EventType `json:"event,omitempty"`
	Filter *Filter   `json:"filter,omitempty"`
}

// Filter narrows a subscription to rows where Column equals Value, or to the
// direct conversation with Peer.
type Filter struct {
	Column string `json:"column,omitempty"`
	Value  string `json:"value,omitempty"`
	Peer   string `json:"peer,omitempty"`
}

type Unsubscribe struct {
	SubscriptionId string `json:"subscription_id"`
}

type ServerMessage struct {
	BaseMessage
	Response     *Response     `json:"response,omitempty"`
	Change       *Change       `json:"change,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
}

type Response struct {
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error,omitempty"`
	Data         any    `json:"data,omitempty"`
}

type Change struct {
	SubscriptionId string      `json:"subscription_id"`
	Event          ChangeEvent `json:"event"`
}

type Notification struct {
	ChannelClosed *ChannelClosed `json:"channel_closed,omitempty"`
}

// ChannelClosed tells a client its subscription ended without an unsubscribe.
type ChannelClosed struct {
	SubscriptionId string `json:"subscription_id"`
	Table          string `json:"table"`
}

type SubscribeResult struct {
	SubscriptionId string `json:"subscription_id"`
	Table          string `json:"table"`
}

func response(id int, code int, errMsg string, data any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: code,
			Error:        errMsg,
			Data:         data,
		},
	}
}

func NoErrOK(id int, data any) *ServerMessage {
	return response(id, http.StatusOK, "", data)
}

func ErrBadRequest(id int, reason string) *ServerMessage {
	return response(id, http.StatusBadRequest, reason, nil)
}

func ErrForbidden(id int, reason string) *ServerMessage {
	return response(id, http.StatusForbidden, reason, nil)
}

func ErrSubscriptionNotFound(id int) *ServerMessage {
	return response(id, http.StatusNotFound, "subscription not found", nil)
}

func ErrInternalError(id int) *ServerMessage {
	return response(id, http.StatusInternalServerError, "internal server error", nil)
}

func ErrServiceUnavailable(id int) *ServerMessage {
	return response(id, http.StatusServiceUnavailable, "service unavailable", nil)
}

func ErrInvalidMessage(id int) *ServerMessage {
	msg := response(0, http.StatusBadRequest, "invalid message format", nil)
	if id > 0 {
		msg.Id = id
	}
	return msg
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
