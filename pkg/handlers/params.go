package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// ParseFileID extracts the schema file ID from the request path.
// Expects path parameter: fid
func ParseFileID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, bool) {
	return parsePathValue(w, r, "fid", "invalid_file_id", "Missing schema file ID", logger)
}

// ParseMappingID extracts the field mapping ID from the request path.
// Expects path parameter: mid
func ParseMappingID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, bool) {
	return parsePathValue(w, r, "mid", "invalid_mapping_id", "Missing field mapping ID", logger)
}

// ParseCheckID extracts the validation check ID from the request path.
// Expects path parameter: cid
func ParseCheckID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, bool) {
	return parsePathValue(w, r, "cid", "invalid_check_id", "Missing validation check ID", logger)
}

// ParsePlatform extracts and validates the code generation platform from the path.
// Expects path parameter: platform
func ParsePlatform(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (models.Platform, bool) {
	platform := models.Platform(strings.ToLower(r.PathValue("platform")))
	if !models.IsValidPlatform(platform) {
		if err := ErrorResponse(w, http.StatusBadRequest, "unknown_platform", "Unknown code generation platform"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return "", false
	}
	return platform, true
}

// parsePathValue is the internal helper for required string path parameters.
func parsePathValue(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (string, bool) {
	value := strings.TrimSpace(r.PathValue(pathParam))
	if value == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, errorCode, errorMessage); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return "", false
	}
	return value, true
}
