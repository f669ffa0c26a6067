package pinauth_test

import (
	"context"
	"database/sql"
	"io"
	"mime/multipart"
	"time"

	pinauth "github.com/goliatone/go-pinauth"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// MockUsers implements pinauth.Users. The embedded interface covers the
// generic repository surface; only the methods the tests exercise are
// backed by expectations.
type MockUsers struct {
	mock.Mock
	pinauth.Users
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*pinauth.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*pinauth.User)
	return user, args.Error(1)
}

func (m *MockUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) Register(ctx context.Context, user *pinauth.User) (*pinauth.User, error) {
	args := m.Called(ctx, user)
	created, _ := args.Get(0).(*pinauth.User)
	return created, args.Error(1)
}

func (m *MockUsers) RegisterTx(ctx context.Context, tx bun.IDB, user *pinauth.User) (*pinauth.User, error) {
	args := m.Called(ctx, tx, user)
	created, _ := args.Get(0).(*pinauth.User)
	return created, args.Error(1)
}

func (m *MockUsers) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*pinauth.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*pinauth.User)
	return user, args.Error(1)
}

// MockOtpRegistrations implements pinauth.OtpRegistrations.
type MockOtpRegistrations struct {
	mock.Mock
	pinauth.OtpRegistrations
}

func (m *MockOtpRegistrations) GetByEmail(ctx context.Context, email string) (*pinauth.OtpRegistration, error) {
	args := m.Called(ctx, email)
	record, _ := args.Get(0).(*pinauth.OtpRegistration)
	return record, args.Error(1)
}

func (m *MockOtpRegistrations) UpsertByEmail(ctx context.Context, record *pinauth.OtpRegistration) (*pinauth.OtpRegistration, error) {
	args := m.Called(ctx, record)
	saved, _ := args.Get(0).(*pinauth.OtpRegistration)
	return saved, args.Error(1)
}

func (m *MockOtpRegistrations) UpsertByEmailTx(ctx context.Context, tx bun.IDB, record *pinauth.OtpRegistration) (*pinauth.OtpRegistration, error) {
	args := m.Called(ctx, tx, record)
	saved, _ := args.Get(0).(*pinauth.OtpRegistration)
	return saved, args.Error(1)
}

func (m *MockOtpRegistrations) DeleteByEmailTx(ctx context.Context, tx bun.IDB, email string) error {
	args := m.Called(ctx, tx, email)
	return args.Error(0)
}

// MockAccessTokens implements pinauth.AccessTokens.
type MockAccessTokens struct {
	mock.Mock
	pinauth.AccessTokens
}

func (m *MockAccessTokens) Create(ctx context.Context, record *pinauth.AccessToken, criteria ...repository.InsertCriteria) (*pinauth.AccessToken, error) {
	args := m.Called(ctx, record)
	created, _ := args.Get(0).(*pinauth.AccessToken)
	return created, args.Error(1)
}

func (m *MockAccessTokens) CreateTx(ctx context.Context, tx bun.IDB, record *pinauth.AccessToken, criteria ...repository.InsertCriteria) (*pinauth.AccessToken, error) {
	args := m.Called(ctx, tx, record)
	created, _ := args.Get(0).(*pinauth.AccessToken)
	return created, args.Error(1)
}

func (m *MockAccessTokens) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccessTokens) Revoke(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccessTokens) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// MockRepositoryManager implements pinauth.RepositoryManager.
type MockRepositoryManager struct {
	mock.Mock
}

func (m *MockRepositoryManager) Validate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepositoryManager) MustValidate() {
	m.Called()
}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	args := m.Called(ctx, opts, f)
	return args.Error(0)
}

func (m *MockRepositoryManager) Users() pinauth.Users {
	args := m.Called()
	return args.Get(0).(pinauth.Users)
}

func (m *MockRepositoryManager) OtpRegistrations() pinauth.OtpRegistrations {
	args := m.Called()
	return args.Get(0).(pinauth.OtpRegistrations)
}

func (m *MockRepositoryManager) AccessTokens() pinauth.AccessTokens {
	args := m.Called()
	return args.Get(0).(pinauth.AccessTokens)
}

// MockMailer implements pinauth.Mailer.
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg pinauth.MailMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockActivitySink implements pinauth.ActivitySink.
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event pinauth.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockTokenIssuer implements pinauth.TokenIssuer.
type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) Issue(ctx context.Context, user *pinauth.User, deviceName string) (string, error) {
	args := m.Called(ctx, user, deviceName)
	return args.String(0), args.Error(1)
}

func (m *MockTokenIssuer) IssueTx(ctx context.Context, tx bun.IDB, user *pinauth.User, deviceName string) (string, error) {
	args := m.Called(ctx, tx, user, deviceName)
	return args.String(0), args.Error(1)
}

func (m *MockTokenIssuer) Validate(ctx context.Context, raw string) (*pinauth.JWTClaims, error) {
	args := m.Called(ctx, raw)
	claims, _ := args.Get(0).(*pinauth.JWTClaims)
	return claims, args.Error(1)
}

func (m *MockTokenIssuer) Revoke(ctx context.Context, raw string) error {
	args := m.Called(ctx, raw)
	return args.Error(0)
}

// MockContext mocks router.Context.
type MockContext struct {
	mock.Mock
	NextCalled bool
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *MockContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindJSON(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) QueryValues(key string) []string {
	args := m.Called(key)
	vals, _ := args.Get(0).([]string)
	return vals
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *MockContext) LocalsMerge(key any, value map[string]any) map[string]any {
	args := m.Called(key, value)
	merged, _ := args.Get(0).(map[string]any)
	return merged
}

func (m *MockContext) FormFile(key string) (*multipart.FileHeader, error) {
	args := m.Called(key)
	fh, _ := args.Get(0).(*multipart.FileHeader)
	return fh, args.Error(1)
}

func (m *MockContext) FormValue(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) IP() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) SendStatus(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) SendStream(r io.Reader) error {
	args := m.Called(r)
	return args.Error(0)
}

func (m *MockContext) RouteName() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) RouteParams() map[string]string {
	args := m.Called()
	params, _ := args.Get(0).(map[string]string)
	return params
}

func (m *MockContext) Referer() string {
	args := m.Called()
	return args.String(0)
}
