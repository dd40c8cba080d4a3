package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/maheshrc27/feedqueue-api/internal/codec"
	"github.com/maheshrc27/feedqueue-api/internal/models"
	"github.com/maheshrc27/feedqueue-api/internal/service"
	"github.com/maheshrc27/feedqueue-api/internal/transfer"
)

// NewFiberConfig wires the shared codec and error handler into the app.
func NewFiberConfig(c *codec.Codec, audit *service.AppLogService) fiber.Config {
	return fiber.Config{
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
		BodyLimit:    10 * 1024 * 1024, // 10 MB, queue images travel inline
		JSONEncoder:  c.Marshal,
		JSONDecoder:  c.Unmarshal,
		ErrorHandler: NewErrorHandler(audit),
	}
}

type Handlers struct {
	Auth   *AuthHandler
	User   *UserHandler
	Keys   *ApiKeyHandler
	Queues *QueueHandler
	Posts  *PostHandler
}

// RegisterRoutes mounts the public login routes and the authenticated,
// transactional /v1 API. Handler panics are turned into 500 responses.
func RegisterRoutes(app *fiber.App, h Handlers, auth fiber.Handler, tx fiber.Handler) {
	app.Use(recover.New())

	if h.Auth != nil {
		app.Get("/login", h.Auth.Login)
		app.Get("/login/callback", h.Auth.LoginCallbackHandler)
	}

	v1 := app.Group("/v1", auth, tx)

	if h.User != nil {
		v1.Get("/user/info", h.User.GetUserInfo)
	}
	if h.Keys != nil {
		v1.Post("/keys", h.Keys.CreateApiKey)
		v1.Get("/keys", h.Keys.ListKeys)
		v1.Delete("/keys/:id", h.Keys.RemoveAPIKey)
	}
	if h.Queues != nil {
		registerQueueRoutes(v1, h.Queues)
	}
	if h.Posts != nil {
		registerPostRoutes(v1, h.Posts)
	}
}

func registerQueueRoutes(r fiber.Router, h *QueueHandler) {
	r.Get("/queues", h.ListQueues)
	r.Post("/queues", h.CreateQueue)

	q := r.Group("/queues/:ident")
	q.Get("", h.GetQueue)
	q.Put("", h.UpdateQueue(false))
	q.Patch("", h.UpdateQueue(true))
	q.Delete("", h.DeleteQueue)

	q.Get("/posts", h.ListPosts)
	q.Post("/posts", h.CreatePost)
	q.Delete("/posts", h.DeleteQueuePosts)

	for name, attr := range queueAttributes {
		q.Get("/"+name, h.GetAttribute(attr))
		q.Put("/"+name, h.UpdateAttribute(attr, false))
		q.Patch("/"+name, h.UpdateAttribute(attr, true))
		q.Delete("/"+name, h.DeleteAttribute(attr))
	}
	q.Put("/ident", h.UpdateAttribute(models.QueueIdent, false))
	q.Patch("/ident", h.UpdateAttribute(models.QueueIdent, true))

	q.Get("/auth", h.GetAuthRequirement)
	q.Put("/auth", h.UpdateAuthRequirement)
	q.Patch("/auth", h.UpdateAuthRequirement)
	q.Delete("/auth", h.DeleteAuthRequirement)

	q.Get("/deployed", h.GetLastDeployed)

	q.Get("/options", h.GetExportOptions)
	q.Put("/options", h.UpdateExportOptions(false))
	q.Patch("/options", h.UpdateExportOptions(true))
	q.Delete("/options", h.DeleteExportOptions)
	q.Get("/options/atomConfig", h.GetAtomConfig)
	q.Put("/options/atomConfig", h.UpdateAtomConfig(false))
	q.Patch("/options/atomConfig", h.UpdateAtomConfig(true))
	q.Delete("/options/atomConfig", h.DeleteAtomConfig)
	q.Get("/options/rssConfig", h.GetRSSConfig)
	q.Put("/options/rssConfig", h.UpdateRSSConfig(false))
	q.Patch("/options/rssConfig", h.UpdateRSSConfig(true))
	q.Delete("/options/rssConfig", h.DeleteRSSConfig)

	q.Get("/status", h.GetStatus)
	q.Put("/status", h.UpdateStatus)
	q.Patch("/status", h.UpdateStatus)
}

// jsonRoutes registers GET/PUT/PATCH for a structured post field, plus
// DELETE when the field can be cleared.
func jsonRoutes[T any](r fiber.Router, h *PostHandler, path string, field models.PostField,
	get func(*models.StagingPost) T, validate func(T) error, clearable bool) {
	r.Get(path, GetJSONField(h, get))
	r.Put(path, UpdateJSONField(h, field, validate, false))
	r.Patch(path, UpdateJSONField(h, field, validate, true))
	if clearable {
		r.Delete(path, h.ClearField(field))
	}
}

func stringRoutes(r fiber.Router, h *PostHandler, path string, field models.PostField,
	get func(*models.StagingPost) *string, validate func(*string) error) {
	r.Get(path, h.GetStringField(get))
	r.Put(path, h.UpdateStringField(field, validate, false))
	r.Patch(path, h.UpdateStringField(field, validate, true))
	r.Delete(path, h.ClearField(field))
}

func registerPostRoutes(r fiber.Router, h *PostHandler) {
	p := r.Group("/posts/:id")
	p.Get("", h.GetPost)
	p.Put("", h.UpdatePost(false))
	p.Patch("", h.UpdatePost(true))
	p.Delete("", h.DeletePost)

	jsonRoutes(p, h, "/title", models.PostTitleField,
		func(p *models.StagingPost) *models.ContentObject { return p.PostTitle }, transfer.ValidateContentObject, false)
	jsonRoutes(p, h, "/description", models.PostDescField,
		func(p *models.StagingPost) *models.ContentObject { return p.PostDesc }, transfer.ValidateContentObject, false)
	jsonRoutes(p, h, "/contents", models.PostContentsField,
		func(p *models.StagingPost) []*models.ContentObject { return p.PostContents }, transfer.ValidateContents, true)
	jsonRoutes(p, h, "/itunes", models.PostITunesField,
		func(p *models.StagingPost) *models.PostITunes { return p.PostITunes }, nil, true)
	jsonRoutes(p, h, "/urls", models.PostUrlsField,
		func(p *models.StagingPost) []*models.PostUrl { return p.PostUrls }, transfer.ValidateUrls, true)
	jsonRoutes(p, h, "/contributors", models.ContributorsField,
		func(p *models.StagingPost) []*models.PostPerson { return p.Contributors }, transfer.ValidatePersons, true)
	jsonRoutes(p, h, "/authors", models.AuthorsField,
		func(p *models.StagingPost) []*models.PostPerson { return p.Authors }, transfer.ValidatePersons, true)
	jsonRoutes(p, h, "/enclosures", models.EnclosuresField,
		func(p *models.StagingPost) []*models.PostEnclosure { return p.Enclosures }, transfer.ValidateEnclosures, true)

	stringRoutes(p, h, "/url", models.PostUrlField,
		func(p *models.StagingPost) *string { return p.PostUrl }, transfer.ValidateURL)
	stringRoutes(p, h, "/imgurl", models.PostImgUrlField,
		func(p *models.StagingPost) *string { return p.PostImgUrl }, transfer.ValidateURL)
	stringRoutes(p, h, "/comment", models.PostCommentField,
		func(p *models.StagingPost) *string { return p.PostComment }, nil)
	stringRoutes(p, h, "/rights", models.PostRightsField,
		func(p *models.StagingPost) *string { return p.PostRights }, nil)

	p.Get("/categories", h.GetCategories)
	p.Put("/categories", UpdateJSONField[[]string](h, models.PostCategoriesField, nil, false))
	p.Patch("/categories", UpdateJSONField[[]string](h, models.PostCategoriesField, nil, true))
	p.Delete("/categories", h.ClearField(models.PostCategoriesField))

	p.Get("/expiration", h.GetTimestampField(func(p *models.StagingPost) *time.Time { return p.ExpirationTimestamp }))
	p.Put("/expiration", h.UpdateExpiration(false))
	p.Patch("/expiration", h.UpdateExpiration(true))
	p.Delete("/expiration", h.ClearField(models.ExpirationField))

	p.Get("/published", h.GetTimestampField(func(p *models.StagingPost) *time.Time { return p.PublishTimestamp }))
	p.Get("/updated", h.GetTimestampField(func(p *models.StagingPost) *time.Time { return p.LastUpdatedTimestamp }))

	p.Get("/queue", h.GetQueue)
	p.Put("/queue", h.UpdateQueue)

	p.Get("/status", h.GetStatus)
	p.Put("/status", h.UpdateStatus)
	p.Patch("/status", h.UpdateStatus)
}
