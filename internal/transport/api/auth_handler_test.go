package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/fsdevblog/groph-bank/internal/domain"
	"github.com/fsdevblog/groph-bank/internal/logger"
	"github.com/fsdevblog/groph-bank/internal/service"
	"github.com/fsdevblog/groph-bank/internal/transport/api/mocks"
	"github.com/fsdevblog/groph-bank/internal/transport/api/testutils"
	"github.com/fsdevblog/groph-bank/internal/transport/api/tokens"
	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
)

const (
	testAccountNumber  = "ACC1700000000000001"
	otherAccountNumber = "ACC1700000000000002"
)

type AuthHandlerTestSuite struct {
	suite.Suite
	router          *gin.Engine
	mockAuthService *mocks.MockAuthServicer
	jwtSecret       []byte
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerTestSuite))
}

func (s *AuthHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	mockCtrl := gomock.NewController(s.T())

	s.mockAuthService = mocks.NewMockAuthServicer(mockCtrl)
	s.jwtSecret = []byte("super secret key")

	s.router = New(RouterArgs{
		Logger:        logger.New(io.Discard, "error"),
		LedgerService: mocks.NewMockLedgerServicer(mockCtrl),
		AuthService:   s.mockAuthService,
		JWTSecretKey:  s.jwtSecret,
	})
}

func (s *AuthHandlerTestSuite) TestRegister() {
	validToken, tokenErr := tokens.GenerateUserJWT("alice", testAccountNumber, time.Hour, s.jwtSecret)
	s.Require().NoError(tokenErr)

	s.mockAuthService.EXPECT().
		Register(gomock.Any(), service.RegisterArgs{
			Username:      "alice",
			Password:      "secret1",
			AccountNumber: testAccountNumber,
		}).
		Return(&domain.Credential{Username: "alice", AccountNumber: testAccountNumber}, nil).Times(1)
	s.mockAuthService.EXPECT().
		Register(gomock.Any(), service.RegisterArgs{
			Username:      "taken",
			Password:      "secret1",
			AccountNumber: testAccountNumber,
		}).
		Return(nil, fmt.Errorf("register: %w", domain.ErrDuplicateUsername)).Times(1)
	s.mockAuthService.EXPECT().
		Register(gomock.Any(), service.RegisterArgs{
			Username:      "bob",
			Password:      "secret1",
			AccountNumber: otherAccountNumber,
		}).
		Return(nil, fmt.Errorf("register: %w", domain.ErrDuplicateAccountLink)).Times(1)

	cases := []struct {
		name       string
		body       any
		jwtToken   string
		wantStatus int
		wantError  string
	}{
		{
			name:       "all ok",
			body:       gin.H{"username": "alice", "password": "secret1", "account_number": testAccountNumber},
			wantStatus: http.StatusCreated,
		}, {
			name:       "username taken",
			body:       gin.H{"username": "taken", "password": "secret1", "account_number": testAccountNumber},
			wantStatus: http.StatusConflict,
			wantError:  "username already exists",
		}, {
			name:       "account already linked",
			body:       gin.H{"username": "bob", "password": "secret1", "account_number": otherAccountNumber},
			wantStatus: http.StatusConflict,
			wantError:  "account already linked to another user",
		}, {
			name:       "malformed account number",
			body:       gin.H{"username": "alice", "password": "secret1", "account_number": "12345"},
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "invalid fields: account_number (account_number)",
		}, {
			name: "password over bcrypt limit",
			body: gin.H{
				"username":       "alice",
				"password":       testutils.GenerateOverBytesUnderRunes(19),
				"account_number": testAccountNumber,
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "invalid fields: password (max_bytes)",
		}, {
			name:       "bad json",
			body:       []byte("{"),
			wantStatus: http.StatusBadRequest,
			wantError:  "bad request",
		}, {
			name:       "already authorized",
			body:       gin.H{"username": "alice", "password": "secret1", "account_number": testAccountNumber},
			jwtToken:   validToken,
			wantStatus: http.StatusForbidden,
			wantError:  "already authorized",
		},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			var reqOpts []func(*testutils.RequestOptions)
			if t.jwtToken != "" {
				reqOpts = append(reqOpts, testutils.WithBearer(t.jwtToken))
			}
			res, err := testutils.MakeRequest(testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodPost,
				URL:    RouteGroup + RegisterRoute,
				Body:   t.body,
			}, reqOpts...)
			s.Require().NoError(err)
			s.Equal(t.wantStatus, res.StatusCode)

			var body map[string]any
			s.Require().NoError(testutils.DecodeJSON(res, &body))
			if t.wantError != "" {
				s.Equal(t.wantError, body["error"])
				return
			}
			s.True(strings.HasPrefix(res.Header.Get("Authorization"), "Bearer "))
		})
	}
}

func (s *AuthHandlerTestSuite) TestLogin() {
	s.mockAuthService.EXPECT().
		Login(gomock.Any(), "alice", "secret1").
		Return(&domain.Credential{Username: "alice", AccountNumber: testAccountNumber}, nil).Times(1)
	s.mockAuthService.EXPECT().
		Login(gomock.Any(), "alice", "wrong").
		Return(nil, fmt.Errorf("login: %w", domain.ErrInvalidCredentials)).Times(1)
	s.mockAuthService.EXPECT().
		Login(gomock.Any(), "locked", "secret1").
		Return(nil, fmt.Errorf("login: %w", domain.ErrAccountLocked)).Times(1)
	s.mockAuthService.EXPECT().
		Login(gomock.Any(), "busy", "secret1").
		Return(nil, fmt.Errorf("login: %w", domain.ErrBusy)).Times(1)
	s.mockAuthService.EXPECT().
		Login(gomock.Any(), "broken", "secret1").
		Return(nil, fmt.Errorf("login: %w: connection refused", domain.ErrStoreFailure)).Times(1)

	cases := []struct {
		name       string
		username   string
		password   string
		wantStatus int
		wantError  string
	}{
		{name: "all ok", username: "alice", password: "secret1", wantStatus: http.StatusOK},
		{
			name: "wrong password", username: "alice", password: "wrong",
			wantStatus: http.StatusUnauthorized, wantError: "invalid username or password",
		},
		{
			name: "locked", username: "locked", password: "secret1",
			wantStatus: http.StatusLocked, wantError: "account is locked, reset your password to unlock it",
		},
		{
			name: "busy", username: "busy", password: "secret1",
			wantStatus: http.StatusServiceUnavailable, wantError: "service is busy, try again later",
		},
		{
			name: "store failure is not leaked", username: "broken", password: "secret1",
			wantStatus: http.StatusInternalServerError, wantError: "internal error",
		},
		{
			name: "missing password", username: "alice",
			wantStatus: http.StatusUnprocessableEntity, wantError: "invalid fields: password (required)",
		},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			res, err := testutils.MakeRequest(testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodPost,
				URL:    RouteGroup + LoginRoute,
				Body:   gin.H{"username": t.username, "password": t.password},
			})
			s.Require().NoError(err)
			s.Equal(t.wantStatus, res.StatusCode)

			var body map[string]any
			s.Require().NoError(testutils.DecodeJSON(res, &body))
			if t.wantError != "" {
				s.Equal(t.wantError, body["error"])
				s.Empty(res.Header.Get("Authorization"))
				return
			}

			authHeader := res.Header.Get("Authorization")
			claims, claimsErr := tokens.ValidateUserJWT(strings.TrimPrefix(authHeader, "Bearer "), s.jwtSecret)
			s.Require().NoError(claimsErr)
			s.Equal("alice", claims.Username)
			s.Equal(testAccountNumber, claims.AccountNumber)
		})
	}
}

func (s *AuthHandlerTestSuite) TestReset() {
	s.mockAuthService.EXPECT().ResetCredential(gomock.Any(), testAccountNumber).Return(nil).Times(1)
	s.mockAuthService.EXPECT().
		ResetCredential(gomock.Any(), otherAccountNumber).
		Return(fmt.Errorf("reset credential: %w", domain.ErrNoContactChannel)).Times(1)

	cases := []struct {
		name          string
		accountNumber string
		wantStatus    int
	}{
		{name: "all ok", accountNumber: testAccountNumber, wantStatus: http.StatusAccepted},
		{name: "no email", accountNumber: otherAccountNumber, wantStatus: http.StatusUnprocessableEntity},
		{name: "malformed account number", accountNumber: "ACC1", wantStatus: http.StatusUnprocessableEntity},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			res, err := testutils.MakeRequest(testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodPost,
				URL:    RouteGroup + ResetRoute,
				Body:   gin.H{"account_number": t.accountNumber},
			})
			s.Require().NoError(err)
			defer res.Body.Close()
			s.Equal(t.wantStatus, res.StatusCode)
		})
	}
}

func (s *AuthHandlerTestSuite) TestChangePassword() {
	token, tokenErr := tokens.GenerateUserJWT("alice", testAccountNumber, time.Hour, s.jwtSecret)
	s.Require().NoError(tokenErr)

	s.mockAuthService.EXPECT().ChangePassword(gomock.Any(), "alice", "secret1", "secret2").Return(nil).Times(1)
	s.mockAuthService.EXPECT().
		ChangePassword(gomock.Any(), "alice", "wrong", "secret2").
		Return(fmt.Errorf("change password: %w", domain.ErrInvalidCredentials)).Times(1)
	s.mockAuthService.EXPECT().
		ChangePassword(gomock.Any(), "alice", "secret3", "secret2").
		Return(fmt.Errorf("change password: %w", domain.ErrInvalidPassword)).Times(1)

	cases := []struct {
		name       string
		oldPass    string
		jwtToken   string
		wantStatus int
	}{
		{name: "all ok", oldPass: "secret1", jwtToken: token, wantStatus: http.StatusNoContent},
		{name: "wrong old password", oldPass: "wrong", jwtToken: token, wantStatus: http.StatusUnauthorized},
		{name: "rejected new password", oldPass: "secret3", jwtToken: token, wantStatus: http.StatusUnprocessableEntity},
		{name: "not authorized", oldPass: "secret1", wantStatus: http.StatusUnauthorized},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			var reqOpts []func(*testutils.RequestOptions)
			if t.jwtToken != "" {
				reqOpts = append(reqOpts, testutils.WithBearer(t.jwtToken))
			}
			res, err := testutils.MakeRequest(testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodPost,
				URL:    RouteGroup + PasswordRoute,
				Body:   gin.H{"old_password": t.oldPass, "new_password": "secret2"},
			}, reqOpts...)
			s.Require().NoError(err)
			defer res.Body.Close()
			s.Equal(t.wantStatus, res.StatusCode)
		})
	}
}
