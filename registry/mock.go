package registry

import "github.com/stretchr/testify/mock"

// MockDisplay mocks the interfaces.Display interface
type MockDisplay struct {
	mock.Mock
}

// ShowName mocks the ShowName method
func (m *MockDisplay) ShowName(name string) {
	m.Called(name)
}

// ShowPOAP mocks the ShowPOAP method
func (m *MockDisplay) ShowPOAP(payload string) error {
	return m.Called(payload).Error(0)
}

// OpenImage mocks the OpenImage method
func (m *MockDisplay) OpenImage(path string) error {
	return m.Called(path).Error(0)
}
