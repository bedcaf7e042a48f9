package server

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"threadfeed/feeds"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const rssContentType = "application/rss+xml"

// Instance wide listings change slowly and are the same for every reader
const listingCacheControl = "public, max-age=3600"

// FeedBuilder assembles a feed channel for a resolved request
type FeedBuilder interface {
	Build(ctx context.Context, req feeds.Request) (*feeds.Channel, error)
}

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type ServerConfig struct {
	// Builds the feed documents
	Feeds FeedBuilder

	// Bounds for the limit query parameter
	Limits feeds.Limits

	// Origins allowed to fetch feeds from a browser, empty allows none
	CorsOrigins []string

	// Checked by /healthz, optional
	Health Pinger
}

// Returns a fiber.App serving the RSS feeds
func Server(config *ServerConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "threadfeed",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil {
			// Write the error response now so the logged status is the final one
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				c.Status(fiber.StatusInternalServerError)
			}
		}

		log.WithFields(log.Fields{
			"method":    c.Method(),
			"route":     c.Route().Path,
			"status":    c.Response().StatusCode(),
			"latency":   time.Since(start),
			"requestid": c.Locals("requestid"),
		}).Info("Request")
		return nil
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())

	if len(config.CorsOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins: strings.Join(config.CorsOrigins, ","),
			AllowMethods: "GET,HEAD",
		}))
	}

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if config.Health != nil {
			if err := config.Health.Ping(c.UserContext()); err != nil {
				log.WithError(err).Warn("Health check failed")
				return c.Status(fiber.StatusServiceUnavailable).SendString("unavailable")
			}
		}
		return c.SendString("ok")
	})

	handler := &feedHandler{builder: config.Feeds, limits: config.Limits}

	app.Get("/feeds/all.xml", handler.listing(feeds.KindAll))
	app.Get("/feeds/local.xml", handler.listing(feeds.KindLocal))
	app.Get("/feeds/:type/:name.xml", handler.named)

	return app
}

type feedHandler struct {
	builder FeedBuilder
	limits  feeds.Limits
}

func (h *feedHandler) listing(kind feeds.Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := h.request(c, kind)
		if err != nil {
			return h.fail(c, kind, err)
		}
		c.Set(fiber.HeaderCacheControl, listingCacheControl)
		return h.serve(c, req)
	}
}

func (h *feedHandler) named(c *fiber.Ctx) error {
	kind, ok := routeKinds[c.Params("type")]
	if !ok {
		return h.fail(c, "unknown", &feeds.Error{Kind: feeds.KindInvalidParameter, Message: "wrong_type"})
	}

	req, err := h.request(c, kind)
	if err != nil {
		return h.fail(c, kind, err)
	}

	name := c.Params("name")
	switch kind {
	case feeds.KindFront, feeds.KindInbox:
		req.Credential = name
	default:
		req.Target = name
	}
	return h.serve(c, req)
}

// routeKinds maps the {type} path segment to a feed kind
var routeKinds = map[string]feeds.Kind{
	"u":     feeds.KindUser,
	"c":     feeds.KindCommunity,
	"front": feeds.KindFront,
	"inbox": feeds.KindInbox,
}

// request resolves sort and limit before anything touches the store
func (h *feedHandler) request(c *fiber.Ctx, kind feeds.Kind) (feeds.Request, error) {
	sort, limit, err := feeds.ResolveParams(queryParam(c, "sort"), queryParam(c, "limit"), h.limits)
	if err != nil {
		return feeds.Request{}, err
	}
	return feeds.Request{Kind: kind, Sort: sort, Limit: limit}, nil
}

func (h *feedHandler) serve(c *fiber.Ctx, req feeds.Request) error {
	start := time.Now()

	channel, err := h.builder.Build(c.UserContext(), req)
	if err != nil {
		return h.fail(c, req.Kind, err)
	}

	body, err := channel.Bytes()
	if err != nil {
		return h.fail(c, req.Kind, err)
	}

	kind := string(req.Kind)
	feedItems.WithLabelValues(kind).Observe(float64(len(channel.Items)))
	feedDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	feedRequests.WithLabelValues(kind, strconv.Itoa(fiber.StatusOK)).Inc()

	c.Set(fiber.HeaderContentType, rssContentType)
	return c.Status(fiber.StatusOK).Send(body)
}

func (h *feedHandler) fail(c *fiber.Ctx, kind feeds.Kind, err error) error {
	status := feeds.StatusCode(err)

	fields := log.Fields{
		"kind":   kind,
		"status": status,
		"error":  err,
	}
	if status >= fiber.StatusInternalServerError {
		log.WithFields(fields).Error("Failed to build feed")
	} else {
		log.WithFields(fields).Info("Rejected feed request")
	}

	feedErrors.WithLabelValues(string(feeds.KindOf(err))).Inc()
	feedRequests.WithLabelValues(string(kind), strconv.Itoa(status)).Inc()

	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Status(status).SendString(feeds.PublicMessage(err))
}

// queryParam returns nil when the parameter is absent
func queryParam(c *fiber.Ctx, key string) *string {
	if !c.Context().QueryArgs().Has(key) {
		return nil
	}
	value := c.Query(key)
	return &value
}

// errorHandler answers errors that never reached a feed handler, such as
// unknown routes
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}
	message := "internal error"
	if fiberErr != nil && code < fiber.StatusInternalServerError {
		message = fiberErr.Message
	}
	return c.Status(code).SendString(message)
}
