package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mapit/internal/service"
	"github.com/iliyamo/mapit/internal/utils"
)

type registerReq struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	PackageID flexID `json:"package_id"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register: POST /api/register.
func (h *Handler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	reg, err := h.Accounts.Register(ctx, service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		PackageID: req.PackageID.ptr(),
	})
	if err != nil {
		return h.fail(c, err)
	}
	body := echo.Map{"user": reg.Customer, "message": "registration successful"}
	if reg.Order != nil {
		body["order"] = reg.Order
	}
	return ok(c, http.StatusCreated, body)
}

// Login: POST /api/login. Returns the customer and an access token.
func (h *Handler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	cust, err := h.Accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		return h.fail(c, err)
	}
	tok, err := utils.NewAccessToken(h.JWTSecret, cust.ID, utils.RoleCustomer, h.AccessTTLMin)
	if err != nil {
		return h.fail(c, service.Server("issue token", err))
	}
	return ok(c, http.StatusOK, echo.Map{"user": cust, "token": tok})
}

// AdminLogin: POST /api/admin/login. Returns the admin and an access
// token carrying the ADMIN role.
func (h *Handler) AdminLogin(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	admin, err := h.Admins.Login(ctx, req.Email, req.Password)
	if err != nil {
		return h.fail(c, err)
	}
	tok, err := utils.NewAccessToken(h.JWTSecret, admin.ID, utils.RoleAdmin, h.AccessTTLMin)
	if err != nil {
		return h.fail(c, service.Server("issue token", err))
	}
	return ok(c, http.StatusOK, echo.Map{"admin": admin, "token": tok})
}
