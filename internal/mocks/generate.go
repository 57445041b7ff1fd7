// Package mocks provides gomock implementations of the backend ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	data := mocks.NewMockDataService(ctrl)
//	data.EXPECT().Select(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=data_service_mock.go github.com/target/ticketflow/internal/ports DataService
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=auth_provider_mock.go github.com/target/ticketflow/internal/ports AuthProvider
