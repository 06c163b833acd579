package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/snap-thumbs/auth"
	"github.com/krishkalaria12/snap-thumbs/database"
	"github.com/krishkalaria12/snap-thumbs/models"
)

type UserResponse struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"name"`
	Tier     string `json:"tier"`
}

func userResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
		FullName: user.FullName,
		Tier:     user.Tier.Name,
	}
}

func (h *Handler) GetUser(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid user ID", "data": nil})
	}

	user, err := h.users.FindByID(c.UserContext(), uint(id))
	if errors.Is(err, database.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"status": "error", "message": "No user found with ID", "data": nil})
	}
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"status": "success", "message": "User found", "data": userResponse(user)})
}

// CreateUser registers an account on the named tier.
func (h *Handler) CreateUser(c *fiber.Ctx) error {
	type NewUser struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		FullName string `json:"name"`
		Password string `json:"password"`
		Tier     string `json:"tier"`
	}

	input := new(NewUser)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Wrong Input Data Format", "data": nil})
	}

	required := []struct{ field, value string }{
		{"username", input.Username},
		{"email", input.Email},
		{"password", input.Password},
		{"tier", input.Tier},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fail(c, models.ValidationError{Field: r.field, Message: "This field is required."})
		}
	}

	tier, err := h.tiers.FindByName(c.UserContext(), input.Tier)
	if errors.Is(err, database.ErrNotFound) {
		return fail(c, models.ValidationError{Field: "tier", Message: "Unknown tier."})
	}
	if err != nil {
		return fail(c, err)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return fail(c, err)
	}

	user := &models.User{
		Username: input.Username,
		Email:    input.Email,
		FullName: input.FullName,
		Password: hash,
		TierID:   tier.ID,
	}
	if err := h.users.Create(c.UserContext(), user); err != nil {
		if errors.Is(err, database.ErrDuplicateUser) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"status": "error", "message": "Username or email already taken", "data": nil})
		}
		return fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "message": "User created successfully", "data": userResponse(user)})
}
