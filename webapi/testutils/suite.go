package testutils

import (
	"net/http"

	"github.com/stretchr/testify/suite"
)

// E2ETestSuite gives each test a freshly wired application.
type E2ETestSuite struct {
	suite.Suite
	*Harness
}

func (s *E2ETestSuite) SetupTest() {
	s.Harness = New(s.T())
}

// MakeRequest sends a request to the suite's application.
func (s *E2ETestSuite) MakeRequest(method, path, body, token string) *http.Response {
	return s.Do(s.T(), method, path, body, token)
}
