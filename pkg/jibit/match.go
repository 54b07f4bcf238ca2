package jibit

import (
	"context"
	"fmt"
	"net/http"
)

const matchingPath = "/v1/services/matching"

// MobileMatch holds the fields of a national code / mobile number lookup.
type MobileMatch struct {
	MobileNumber string
	NationalCode string
}

func (m MobileMatch) params() map[string]string {
	return map[string]string{
		ParamMobileNumber: m.MobileNumber,
		ParamNationalCode: m.NationalCode,
	}
}

// CardMatch holds the fields of a card number / national code lookup.
// BirthDate uses the provider's format (Jalali, yyyyMMdd).
type CardMatch struct {
	CardNumber   string
	NationalCode string
	BirthDate    string
}

func (c CardMatch) params() map[string]string {
	return map[string]string{
		ParamCardNumber:   c.CardNumber,
		ParamNationalCode: c.NationalCode,
		ParamBirthDate:    c.BirthDate,
	}
}

// matchingService is the part shared by both matching variants.
type matchingService struct{}

func (matchingService) HTTPMethod() string {
	return http.MethodGet
}

func (matchingService) URI(endpoint string) string {
	return endpoint + matchingPath
}

func (matchingService) BuildResponse(req *Request, env *Envelope) Response {
	return &MatchResponse{BaseResponse: NewBaseResponse(req, env)}
}

// payloadOf validates and normalises the given keys.
func payloadOf(params *Params, keys ...string) (Payload, error) {
	data := make(Payload, len(keys))
	for _, k := range keys {
		data[k] = normalizeField(params.Get(k))
	}

	check := Params{values: data}
	if err := check.Require(keys...); err != nil {
		return nil, err
	}

	return data, nil
}

type mobileMatchMessage struct {
	matchingService
}

func (mobileMatchMessage) Data(params *Params) (Payload, error) {
	return payloadOf(params, ParamMobileNumber, ParamNationalCode)
}

type cardMatchMessage struct {
	matchingService
}

func (cardMatchMessage) Data(params *Params) (Payload, error) {
	return payloadOf(params, ParamCardNumber, ParamNationalCode, ParamBirthDate)
}

// MobileMatchRequest checks that a mobile number is registered to a
// national code.
type MobileMatchRequest struct {
	*Request
}

func (r *MobileMatchRequest) SetMobileNumber(v string) error {
	return r.SetParameter(ParamMobileNumber, v)
}

func (r *MobileMatchRequest) SetNationalCode(v string) error {
	return r.SetParameter(ParamNationalCode, v)
}

// Send dispatches the lookup and returns the typed response.
func (r *MobileMatchRequest) Send(ctx context.Context) (*MatchResponse, error) {
	return asMatchResponse(r.Request.Send(ctx))
}

// CardMatchRequest checks that a bank card belongs to a national code.
type CardMatchRequest struct {
	*Request
}

func (r *CardMatchRequest) SetCardNumber(v string) error {
	return r.SetParameter(ParamCardNumber, v)
}

func (r *CardMatchRequest) SetNationalCode(v string) error {
	return r.SetParameter(ParamNationalCode, v)
}

func (r *CardMatchRequest) SetBirthDate(v string) error {
	return r.SetParameter(ParamBirthDate, v)
}

// Send dispatches the lookup and returns the typed response.
func (r *CardMatchRequest) Send(ctx context.Context) (*MatchResponse, error) {
	return asMatchResponse(r.Request.Send(ctx))
}

func asMatchResponse(resp Response, err error) (*MatchResponse, error) {
	if err != nil {
		return nil, err
	}

	mr, ok := resp.(*MatchResponse)
	if !ok {
		return nil, fmt.Errorf("jibit: unexpected response type %T", resp)
	}

	return mr, nil
}
