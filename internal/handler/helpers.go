package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the standard error body for all endpoints
type ErrorResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Details *string `json:"details,omitempty"`
}

// stringPtr creates a pointer to a string
func stringPtr(s string) *string {
	return &s
}

// patientID extracts the authenticated patient's ID from the request and
// stores it in the context for the logging middleware. The gateway in front
// of this service sets the X-Patient-ID header after token validation.
func patientID(c *gin.Context) (string, bool) {
	id := c.GetHeader("X-Patient-ID")
	if id == "" {
		id = c.Query("patient_id")
	}
	if id == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Patient ID is required",
		})
		return "", false
	}
	c.Set("patient_id", id)
	return id, true
}

// queryInt parses an integer query parameter with a fallback
func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// queryDateRange parses start_date/end_date query parameters. Missing values
// default to the trailing window of the given number of days.
func queryDateRange(c *gin.Context, defaultDays int) (time.Time, time.Time, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -defaultDays)

	if raw := c.Query("start_date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = parsed
	}
	if raw := c.Query("end_date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		// Include the whole end day
		end = parsed.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}

	return start, end, nil
}
