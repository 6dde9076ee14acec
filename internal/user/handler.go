package user

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	msgCreateFailed = "Failed to create user"
	msgListFailed   = "Failed to get users"
	msgGetFailed    = "Failed to get user"
	msgUpdateFailed = "Failed to update user"
	msgDeleteFailed = "Failed to delete user"
	msgNotFound     = "User not found"
	msgInvalidID    = `"userId" must be a valid integer`
	msgDeleted      = "User deleted successfully"
)

// Options tunes how the handler reports errors.
type Options struct {
	// LegacyErrors keeps the original status codes: non-numeric ids fall
	// through to the store and a missing id on update or delete is a 500.
	LegacyErrors bool
}

type Handler struct {
	service *Service
	log     *zap.Logger
	legacy  bool
}

func NewHandler(service *Service, log *zap.Logger, opts Options) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: service, log: log, legacy: opts.LegacyErrors}
}

// RegisterRoutes mounts the CRUD routes on router, which is expected to be
// the group for the users base path.
func (h *Handler) RegisterRoutes(router fiber.Router) {
	router.Post("/", h.createUser)
	router.Get("/", h.getUsers)
	router.Get("/:userId", h.getUser)
	router.Put("/:userId", h.updateUser)
	router.Delete("/:userId", h.deleteUser)
}

func (h *Handler) createUser(c *fiber.Ctx) error {
	payload, err := DecodePayload(c.Body(), c.App().Config().JSONDecoder)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, err.Error())
	}

	created, err := h.service.Create(c.UserContext(), payload)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			return respondError(c, fiber.StatusBadRequest, vErr.Message)
		}
		h.log.Error("create user", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, msgCreateFailed)
	}

	return c.JSON(created)
}

func (h *Handler) getUsers(c *fiber.Ctx) error {
	users, err := h.service.List(c.UserContext())
	if err != nil {
		h.log.Error("list users", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, msgListFailed)
	}
	if users == nil {
		users = []User{}
	}
	return c.JSON(users)
}

func (h *Handler) getUser(c *fiber.Ctx) error {
	userID, ok := h.userID(c)
	if !ok {
		return respondError(c, fiber.StatusBadRequest, msgInvalidID)
	}

	user, err := h.service.GetByID(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return respondError(c, fiber.StatusNotFound, msgNotFound)
		}
		h.log.Error("get user", zap.Int("userId", userID), zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, msgGetFailed)
	}

	return c.JSON(user)
}

func (h *Handler) updateUser(c *fiber.Ctx) error {
	userID, ok := h.userID(c)
	if !ok {
		return respondError(c, fiber.StatusBadRequest, msgInvalidID)
	}

	payload, err := DecodePayload(c.Body(), c.App().Config().JSONDecoder)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, err.Error())
	}

	updated, err := h.service.Update(c.UserContext(), userID, payload)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			return respondError(c, fiber.StatusBadRequest, vErr.Message)
		}
		if errors.Is(err, ErrNotFound) && !h.legacy {
			return respondError(c, fiber.StatusNotFound, msgNotFound)
		}
		h.log.Error("update user", zap.Int("userId", userID), zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, msgUpdateFailed)
	}

	return c.JSON(updated)
}

func (h *Handler) deleteUser(c *fiber.Ctx) error {
	userID, ok := h.userID(c)
	if !ok {
		return respondError(c, fiber.StatusBadRequest, msgInvalidID)
	}

	if err := h.service.Delete(c.UserContext(), userID); err != nil {
		if errors.Is(err, ErrNotFound) && !h.legacy {
			return respondError(c, fiber.StatusNotFound, msgNotFound)
		}
		h.log.Error("delete user", zap.Int("userId", userID), zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, msgDeleteFailed)
	}

	return c.JSON(fiber.Map{"message": msgDeleted})
}

// userID reads the :userId segment. In legacy mode it never fails: an
// unparsable segment becomes 0, which the store never assigns.
func (h *Handler) userID(c *fiber.Ctx) (int, bool) {
	raw := c.Params("userId")
	if h.legacy {
		return parseLeadingInt(raw), true
	}

	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return id, true
}

// parseLeadingInt reads an optional sign and the digits that follow,
// ignoring any trailing text ("12abc" is 12).
func parseLeadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

func respondError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}
