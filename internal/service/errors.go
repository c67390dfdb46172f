// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrSessionNotFound — сессия редактора не найдена или истекла.
	ErrSessionNotFound = errors.New("сессия редактора не найдена")
	// ErrUnknownResource — неизвестная коллекция.
	ErrUnknownResource = errors.New("неизвестная коллекция")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrNotReady — форма не готова к отправке (не заполнены обязательные поля).
	ErrNotReady = errors.New("форма не готова к отправке")
	// ErrSubmitInFlight — отправка этой сессии уже выполняется.
	ErrSubmitInFlight = errors.New("отправка уже выполняется")
	// ErrUpstream — content API недоступен или вернул ошибку.
	ErrUpstream = errors.New("ошибка content API")
)
