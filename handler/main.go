package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"contact-manager/auth"
	"contact-manager/db"
	"contact-manager/model"
	"contact-manager/services"
)

var (
	logger         *zap.Logger
	userService    *services.UserService
	contactService *services.ContactService
	padronService  *services.PadronService
	importService  *services.ImportService
	exportService  *services.ExportService
	smsService     *services.SMSService
)

func init() {
	var err error
	logger, err = zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}

	database, err := db.InitDB()
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Cache is optional: a missing redis leaves everything on postgres.
	redisClient, err := db.InitRedis(context.Background())
	if err != nil {
		logger.Warn("redis unavailable, running without cache", zap.Error(err))
		redisClient = nil
	}

	storage, err := services.NewStorageService(context.Background())
	if err != nil {
		logger.Warn("s3 unavailable, imports will not be archived", zap.Error(err))
		storage = nil
	}

	userService = &services.UserService{DB: database, Log: logger}
	contactService = &services.ContactService{DB: database, Redis: redisClient, Log: logger}
	padronService = &services.PadronService{DB: database, Redis: redisClient, Log: logger}
	importService = &services.ImportService{DB: database, Storage: storage, Log: logger}
	exportService = &services.ExportService{}
	smsService = &services.SMSService{DB: database, Contacts: contactService, Log: logger}
}

func handler(ctx context.Context, rawEvent json.RawMessage) (interface{}, error) {
	// Try to unmarshal as API Gateway event
	var apiReq events.APIGatewayProxyRequest
	if err := json.Unmarshal(rawEvent, &apiReq); err == nil && apiReq.HTTPMethod != "" {
		return apiGatewayHandler(ctx, apiReq)
	}

	// Try to unmarshal as EventBridge event
	var ebEvent events.CloudWatchEvent
	if err := json.Unmarshal(rawEvent, &ebEvent); err == nil && ebEvent.Source != "" {
		return eventBridgeHandler(ctx, ebEvent)
	}

	logger.Error("unknown event format")
	return nil, fmt.Errorf("unsupported event format")
}

func eventBridgeHandler(ctx context.Context, event events.CloudWatchEvent) (string, error) {
	logger.Info("scheduled contact count refresh triggered")
	if err := contactService.RefreshAllCounts(ctx); err != nil {
		logger.Error("count refresh failed", zap.Error(err))
		return "Failed to refresh contact counts", err
	}
	return "Contact count refresh complete", nil
}

func apiGatewayHandler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	id, ok := identityFromRequest(req)
	if !ok {
		return errorResponse(http.StatusUnauthorized, "Missing or invalid credentials")
	}
	ctx = auth.WithIdentity(ctx, id)

	if err := userService.Ensure(ctx, id); err != nil {
		logger.Error("failed to sync user", zap.String("user_id", id.UserID), zap.Error(err))
		return errorResponse(http.StatusInternalServerError, "Failed to resolve account")
	}

	parts := splitPath(req.Path)
	if len(parts) == 0 {
		return errorResponse(http.StatusNotFound, "Not Found")
	}

	switch parts[0] {
	case "contacts":
		return contactsRoute(ctx, id, req, parts)
	case "padron":
		return padronRoute(ctx, req)
	case "sms":
		return smsRoute(ctx, id, req, parts)
	case "admin":
		if !id.IsAdmin() {
			return errorResponse(http.StatusForbidden, "Admin role required")
		}
		return adminRoute(ctx, id, req, parts)
	}
	return errorResponse(http.StatusNotFound, "Not Found")
}

// identityFromRequest resolves the caller from the API Gateway
// authorizer claims. Authentication itself already happened upstream.
func identityFromRequest(req events.APIGatewayProxyRequest) (auth.Identity, bool) {
	authz := req.RequestContext.Authorizer
	if authz == nil {
		return auth.Identity{}, false
	}

	claims := authz
	if nested, ok := authz["claims"].(map[string]interface{}); ok {
		claims = nested
	}
	return auth.FromClaims(claims)
}

func contactsRoute(ctx context.Context, id auth.Identity, req events.APIGatewayProxyRequest, parts []string) (events.APIGatewayProxyResponse, error) {
	switch {
	case req.HTTPMethod == "GET" && len(parts) == 1:
		page, limit := pageParams(req)
		res, err := contactService.List(ctx, id.UserID, req.QueryStringParameters["search"], page, limit)
		if err != nil {
			return serviceError(err)
		}
		return jsonResponse(http.StatusOK, res)

	case req.HTTPMethod == "GET" && len(parts) == 2 && parts[1] == "count":
		n, err := contactService.CountByUser(ctx, id.UserID)
		if err != nil {
			return serviceError(err)
		}
		return jsonResponse(http.StatusOK, map[string]int64{"total": n})

	case req.HTTPMethod == "POST" && len(parts) == 1:
		var in services.ContactInput
		if err := json.Unmarshal([]byte(req.Body), &in); err != nil {
			return errorResponse(http.StatusBadRequest, "Invalid request body")
		}
		c, err := contactService.Create(ctx, id.UserID, in)
		if err != nil {
			return serviceError(err)
		}
		return jsonResponse(http.StatusCreated, c)

	case req.HTTPMethod == "PUT" && len(parts) == 2:
		var in services.ContactInput
		if err := json.Unmarshal([]byte(req.Body), &in); err != nil {
			return errorResponse(http.StatusBadRequest, "Invalid request body")
		}
		c, err := contactService.Update(ctx, id, parts[1], in)
		if err != nil {
			return serviceError(err)
		}
		return jsonResponse(http.StatusOK, c)

	case req.HTTPMethod == "DELETE" && len(parts) == 2:
		if err := contactService.Delete(ctx, id, parts[1]); err != nil {
			return serviceError(err)
		}
		return jsonResponse(http.StatusOK, map[string]string{"message": "Contact deleted"})

	case req.HTTPMethod == "POST" && len(parts) == 2 && parts[1] == "export":
		contacts, err := contactService.ListAll(ctx, id.UserID)
		if err != nil {
			return serviceError(err)
		}
		return spreadsheetResponse(contacts)

	case req.HTTPMethod == "POST" && len(parts) == 2 && parts[1] == "export-selected":
		var body struct {
			IDs []string `json:"ids"`
		}
		if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
			return errorResponse(http.StatusBadRequest, "Invalid request body")
		}
		contacts, err := contactService.ListByIDs(ctx, id.UserID, body.IDs)
		if err != nil {
			return serviceError(err)
		}
		return spreadsheetResponse(contacts)
	}
	return errorResponse(http.StatusNotFound, "Not Found")
}

func padronRoute(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if req.HTTPMethod != "GET" {
		return errorResponse(http.StatusNotFound, "Not Found")
	}
	query := req.QueryStringParameters["rut"]
	switch req.QueryStringParameters["mode"] {
	case "strict":
		rows, err := padronService.SearchByRUTStrict(ctx, query)
		if err != nil {
			return serviceError(err)
		}
		return jsonResponse(http.StatusOK, rows)
	case "contains":
		rows, err := padronService.SearchByRUT(ctx, query, true)
		if err != nil {
			return serviceError(err)
		}
		return jsonResponse(http.StatusOK, rows)
	default:
		rows, err := padronService.SearchByRUT(ctx, query, false)
		if err != nil {
			return serviceError(err)
		}
		return jsonResponse(http.StatusOK, rows)
	}
}

func smsRoute(ctx context.Context, id auth.Identity, req events.APIGatewayProxyRequest, parts []string) (events.APIGatewayProxyResponse, error) {
	switch {
	case req.HTTPMethod == "GET" && len(parts) == 1:
		requests, err := smsService.ListByUser(ctx, id.UserID)
		if err != nil {
			return serviceError(err)
		}
		return jsonResponse(http.StatusOK, requests)

	case req.HTTPMethod == "POST" && len(parts) == 1:
		var in services.SMSRequestInput
		if err := json.Unmarshal([]byte(req.Body), &in); err != nil {
			return errorResponse(http.StatusBadRequest, "Invalid request body")
		}
		created, err := smsService.CreateRequest(ctx, id.UserID, in)
		if err != nil {
			return serviceError(err)
		}
		return jsonResponse(http.StatusCreated, created)

	case req.HTTPMethod == "POST" && len(parts) == 3 && parts[2] == "cancel":
		if err := smsService.Cancel(ctx, id.UserID, parts[1]); err != nil {
			return serviceError(err)
		}
		return jsonResponse(http.StatusOK, map[string]string{"message": "SMS request cancelled successfully."})
	}
	return errorResponse(http.StatusNotFound, "Not Found")
}

func adminRoute(ctx context.Context, id auth.Identity, req events.APIGatewayProxyRequest, parts []string) (events.APIGatewayProxyResponse, error) {
	switch {
	case req.HTTPMethod == "GET" && len(parts) == 2 && parts[1] == "users":
		users, err := contactService.UsersWithCounts(ctx, id)
		if err != nil {
			return serviceError(err)
		}
		return jsonResponse(http.StatusOK, users)

	case req.HTTPMethod == "GET" && len(parts) == 2 && parts[1] == "contacts":
		page, limit := pageParams(req)
		res, err := contactService.AdminList(ctx, id,
			req.QueryStringParameters["search"], page, limit,
			req.QueryStringParameters["user_id"])
		if err != nil {
			return serviceError(err)
		}
		return jsonResponse(http.StatusOK, res)

	case req.HTTPMethod == "POST" && len(parts) == 2 && parts[1] == "import":
		var body struct {
			File      string `json:"file"`
			UserID    string `json:"user_id"`
			Overwrite bool   `json:"overwrite"`
		}
		if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
			return errorResponse(http.StatusBadRequest, "Invalid request body")
		}
		file, err := base64.StdEncoding.DecodeString(body.File)
		if err != nil {
			return errorResponse(http.StatusBadRequest, "File is not valid base64")
		}
		res, err := importService.Import(ctx, body.UserID, file, body.Overwrite)
		if err != nil {
			return serviceError(err)
		}
		return jsonResponse(http.StatusOK, res)

	case req.HTTPMethod == "POST" && len(parts) == 2 && parts[1] == "export":
		var body struct {
			UserID string   `json:"user_id"`
			IDs    []string `json:"ids"`
		}
		if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
			return errorResponse(http.StatusBadRequest, "Invalid request body")
		}
		var err error
		var contacts []model.Contact
		if len(body.IDs) > 0 {
			contacts, err = contactService.ListByIDs(ctx, body.UserID, body.IDs)
		} else {
			contacts, err = contactService.ListAll(ctx, body.UserID)
		}
		if err != nil {
			return serviceError(err)
		}
		return spreadsheetResponse(contacts)

	case req.HTTPMethod == "GET" && len(parts) == 2 && parts[1] == "sms":
		requests, err := smsService.AdminList(ctx, id)
		if err != nil {
			return serviceError(err)
		}
		return jsonResponse(http.StatusOK, requests)

	case req.HTTPMethod == "PUT" && len(parts) == 3 && parts[1] == "sms":
		var body struct {
			Status   string `json:"status"`
			Override bool   `json:"override"`
		}
		if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
			return errorResponse(http.StatusBadRequest, "Invalid request body")
		}
		updated, err := smsService.SetStatus(ctx, id, parts[2], body.Status, body.Override)
		if err != nil {
			return serviceError(err)
		}
		return jsonResponse(http.StatusOK, updated)
	}
	return errorResponse(http.StatusNotFound, "Not Found")
}

func pageParams(req events.APIGatewayProxyRequest) (page, limit int) {
	page, limit = 1, 10
	if v, err := strconv.Atoi(req.QueryStringParameters["page"]); err == nil {
		page = v
	}
	if v, err := strconv.Atoi(req.QueryStringParameters["limit"]); err == nil {
		limit = v
	}
	return page, limit
}

func splitPath(p string) []string {
	var parts []string
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	return parts
}

// statusForError maps the service error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrParse):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func serviceError(err error) (events.APIGatewayProxyResponse, error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
		return errorResponse(status, "Internal error")
	}
	return errorResponse(status, err.Error())
}

func jsonResponse(status int, payload interface{}) (events.APIGatewayProxyResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Failed to encode response")
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}, nil
}

func spreadsheetResponse(contacts []model.Contact) (events.APIGatewayProxyResponse, error) {
	data, err := exportService.Export(contacts)
	if err != nil {
		return serviceError(err)
	}
	return jsonResponse(http.StatusOK, map[string]string{
		"base64": base64.StdEncoding.EncodeToString(data),
	})
}

func errorResponse(status int, message string) (events.APIGatewayProxyResponse, error) {
	body, _ := json.Marshal(map[string]string{
		"error": message,
	})
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Body:       string(body),
	}, nil
}

func main() {
	lambda.Start(handler)
}
