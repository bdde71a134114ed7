package user

import (
	"net/http"

	"yatube/internal/api/form"
	"yatube/internal/errors"
	"yatube/internal/middleware"
	"yatube/internal/model"
	"yatube/internal/service"
	"yatube/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler serves signup, login and logout.
type AuthHandler struct {
	userService service.UserServiceInterface
	// secure marks the session cookie Secure; off for plain-http development.
	secure bool
}

func NewAuthHandler(userService service.UserServiceInterface, secureCookies bool) *AuthHandler {
	return &AuthHandler{userService: userService, secure: secureCookies}
}

type signupInput struct {
	FirstName string `form:"first_name" binding:"max=150"`
	LastName  string `form:"last_name" binding:"max=150"`
	Username  string `form:"username" binding:"notblank,max=150,username"`
	Email     string `form:"email" binding:"omitempty,email"`
	Password1 string `form:"password1" binding:"required"`
	Password2 string `form:"password2" binding:"required,eqfield=Password1"`
}

type loginInput struct {
	Username string `form:"username" binding:"notblank"`
	Password string `form:"password" binding:"required"`
	Next     string `form:"next"`
}

func newSignupForm() *form.Form {
	email := form.Char("email", "Email", false)
	email.InputType = "email"
	username := form.Char("username", "Username", true)
	username.HelpText = "Letters, digits and @/./+/-/_ only."
	password1 := form.Char("password1", "Password", true)
	password1.InputType = "password"
	password1.HelpText = "At least 8 characters."
	password2 := form.Char("password2", "Password confirmation", true)
	password2.InputType = "password"

	return form.New(
		form.Char("first_name", "First name", false),
		form.Char("last_name", "Last name", false),
		username,
		email,
		password1,
		password2,
	)
}

func newLoginForm() *form.Form {
	password := form.Char("password", "Password", true)
	password.InputType = "password"
	return form.New(form.Char("username", "Username", true), password)
}

// SignupPage shows the empty signup form.
func (h *AuthHandler) SignupPage(c *gin.Context) {
	util.RenderHTML(c, http.StatusOK, "users/signup.html", gin.H{"form": newSignupForm()})
}

// Signup creates the account and sends the new user to the index.
func (h *AuthHandler) Signup(c *gin.Context) {
	var input signupInput
	bindErr := c.ShouldBind(&input)

	f := newSignupForm()
	f.SetValue("first_name", input.FirstName)
	f.SetValue("last_name", input.LastName)
	f.SetValue("username", input.Username)
	f.SetValue("email", input.Email)
	if bindErr != nil {
		if !f.AddError(bindErr) {
			util.Logger.Warn("signup form could not be bound", zap.Error(bindErr))
			f.Errors = append(f.Errors, "The submitted form could not be read.")
		}
		util.RenderHTML(c, http.StatusOK, "users/signup.html", gin.H{"form": f})
		return
	}

	user := &model.User{
		Username:  input.Username,
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
	}
	if err := h.userService.Register(c.Request.Context(), user, input.Password1); err != nil {
		if f.AddError(err) {
			util.Logger.Info("signup rejected", zap.String("username", user.Username), zap.Error(err))
			util.RenderHTML(c, http.StatusOK, "users/signup.html", gin.H{"form": f})
			return
		}
		errors.HandleError(c, err)
		return
	}

	c.Redirect(http.StatusFound, "/")
}

// LoginPage shows the login form; next is carried through the post.
func (h *AuthHandler) LoginPage(c *gin.Context) {
	util.RenderHTML(c, http.StatusOK, "users/login.html", gin.H{
		"form": newLoginForm(),
		"next": c.Query("next"),
	})
}

// Login checks the credentials, sets the session cookie and redirects to
// next when it is a local path.
func (h *AuthHandler) Login(c *gin.Context) {
	var input loginInput
	bindErr := c.ShouldBind(&input)

	f := newLoginForm()
	f.SetValue("username", input.Username)
	render := func() {
		util.RenderHTML(c, http.StatusOK, "users/login.html", gin.H{"form": f, "next": input.Next})
	}
	if bindErr != nil {
		if !f.AddError(bindErr) {
			f.Errors = append(f.Errors, "The submitted form could not be read.")
		}
		render()
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidCredentials) {
			f.Errors = append(f.Errors, "Please enter a correct username and password.")
			render()
			return
		}
		errors.HandleError(c, err)
		return
	}

	token, err := util.GenerateToken(user.ID)
	if err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrInternal, "generate token", err))
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, token, int(util.TokenTTL.Seconds()), "/", "", h.secure, true)

	c.Redirect(http.StatusFound, middleware.SafeNext(input.Next, "/"))
}

// Logout drops the session cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	if user := util.CurrentUser(c); user != nil {
		util.Logger.Info("user logged out", zap.Int("user_id", user.ID))
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", h.secure, true)
	util.SetCurrentUser(c, nil)
	util.RenderHTML(c, http.StatusOK, "users/logged_out.html", nil)
}
