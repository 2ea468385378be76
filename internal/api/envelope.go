// File: internal/api/envelope.go
package api

import (
	"errors"

	"github.com/xkilldash9x/printer-snatcher/internal/config"
	"github.com/xkilldash9x/printer-snatcher/internal/printer"
)

// Response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Messages returned in error responses.
const (
	MsgInvalidIPv4     = "Invalid IPV4 Address"
	MsgUnreachable     = "IP address unreachable"
	MsgDeviceFailed    = "Cannot get device details"
	MsgSuppliesFailed  = "Cannot get supplies"
	MsgTraysFailed     = "Cannot get Tray data"
	MsgInternalError   = "Internal server error"
	MsgTooManyRequests = "Too many requests"
)

// Info is the static API metadata included in every response.
type Info struct {
	APIName           string `json:"api_name"`
	Version           string `json:"version"`
	Description       string `json:"description"`
	SupportedPrinters string `json:"supported_printers"`
	RequestFormat     string `json:"request_format"`
	ResponseType      string `json:"response_type"`
}

// NewInfo builds the Info block from configuration.
func NewInfo(cfg config.APIConfig) Info {
	return Info{
		APIName:           cfg.Name,
		Version:           cfg.Version,
		Description:       cfg.Description,
		SupportedPrinters: cfg.SupportedPrinters,
		RequestFormat:     cfg.RequestFormat,
		ResponseType:      cfg.ResponseType,
	}
}

// RequestInfo echoes the scraped address back on success.
type RequestInfo struct {
	IP string `json:"ip"`
}

// Response carries either a *printer.Record (success) or a message string
// (error) in Message.
type Response struct {
	Status  string      `json:"status"`
	Message interface{} `json:"message"`
}

// Envelope is the body of every response. Each request builds its own.
type Envelope struct {
	Info     Info         `json:"info"`
	Request  *RequestInfo `json:"request,omitempty"`
	Response *Response    `json:"response,omitempty"`
}

func infoEnvelope(info Info) Envelope {
	return Envelope{Info: info}
}

func errorEnvelope(info Info, message string) Envelope {
	return Envelope{
		Info:     info,
		Response: &Response{Status: StatusError, Message: message},
	}
}

func successEnvelope(info Info, rec *printer.Record) Envelope {
	return Envelope{
		Info:     info,
		Request:  &RequestInfo{IP: rec.Host},
		Response: &Response{Status: StatusSuccess, Message: rec},
	}
}

// ResultEnvelope builds the envelope for a finished scrape: the record on
// success, the client-facing message for err otherwise.
func ResultEnvelope(info Info, rec *printer.Record, err error) Envelope {
	if err != nil {
		return errorEnvelope(info, errorMessage(err))
	}
	return successEnvelope(info, rec)
}

// InvalidAddressEnvelope is the envelope sent for a malformed ip parameter.
func InvalidAddressEnvelope(info Info) Envelope {
	return errorEnvelope(info, MsgInvalidIPv4)
}

// errorMessage maps a scrape error to the message shown to clients.
func errorMessage(err error) string {
	if errors.Is(err, printer.ErrUnreachable) {
		return MsgUnreachable
	}
	var extErr *printer.ExtractionError
	if errors.As(err, &extErr) {
		switch extErr.Step {
		case printer.StepDevice:
			return MsgDeviceFailed
		case printer.StepSupplies:
			return MsgSuppliesFailed
		case printer.StepTrays:
			return MsgTraysFailed
		}
	}
	return MsgInternalError
}
