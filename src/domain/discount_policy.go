package domain

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

type DiscountType int

const (
	DiscountTypeAutomatic DiscountType = iota
	DiscountTypeCoupon
)

func (self DiscountType) String() string {
	switch self {
	case DiscountTypeAutomatic:
		return "Automatic"
	case DiscountTypeCoupon:
		return "Coupon based"
	default:
		return fmt.Sprintf("DiscountType(%d)", int(self))
	}
}

func (self DiscountType) MarshalJSON() ([]byte, error) {
	return json.Marshal(self.String())
}

type DiscountPolicy struct {
	ID               uuid.UUID    `json:"id"`
	OrganizationID   uuid.UUID    `json:"organization_id"`
	Title            string       `json:"title"`
	Name             string       `json:"name"`
	DiscountType     DiscountType `json:"discount_type"`
	ItemQuantityMin  int          `json:"item_quantity_min"`
	Percentage       *int         `json:"percentage"`
	IsPriceBased     bool         `json:"is_price_based"`
	DiscountCodeBase *string      `json:"discount_code_base"`
	Secret           *string      `json:"secret"`
	CreatedAt        time.Time    `json:"created_at"`

	Items []ItemRef `json:"items" db:"-"`
}

func (self DiscountPolicy) IsAutomatic() bool {
	return self.DiscountType == DiscountTypeAutomatic
}

func (self DiscountPolicy) AppliesTo(itemId uuid.UUID) bool {
	for _, item := range self.Items {
		if item.ID == itemId {
			return true
		}
	}
	return false
}

func (self DiscountPolicy) CanSignCodes() bool {
	return self.DiscountCodeBase != nil && *self.DiscountCodeBase != "" &&
		self.Secret != nil && *self.Secret != ""
}

func NewPolicySecret() string {
	return base64.RawURLEncoding.EncodeToString(securecookie.GenerateRandomKey(32))
}

// Sets a code base derived from the title and a fresh secret when either is missing.
// Returns whether anything changed.
func (self *DiscountPolicy) EnsureSigningKeys() bool {
	if self.CanSignCodes() {
		return false
	}
	if self.DiscountCodeBase == nil || *self.DiscountCodeBase == "" {
		base := MakeName(self.Title)
		if base == "" {
			base = NewCouponCode(6)
		}
		self.DiscountCodeBase = &base
	}
	secret := NewPolicySecret()
	self.Secret = &secret
	return true
}

func (self DiscountPolicy) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(*self.Secret))
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Generates a code in the format `<discount_code_base>.<identifier>.<signature>`.
// An empty identifier is replaced by a fresh one.
func (self DiscountPolicy) GenSignedCode(identifier string) (string, error) {
	if !self.CanSignCodes() {
		return "", fmt.Errorf("Discount policy %s has no code base or secret", self.ID)
	}
	if identifier == "" {
		identifier = NewBuid()
	}
	if strings.Contains(*self.DiscountCodeBase, ".") || strings.Contains(identifier, ".") {
		return "", fmt.Errorf("%w: %q, %q", ErrDottedCodePart, *self.DiscountCodeBase, identifier)
	}
	payload := *self.DiscountCodeBase + "." + identifier
	return payload + "." + self.sign(payload), nil
}

func (self DiscountPolicy) VerifySignedCode(code string) bool {
	if !self.CanSignCodes() || !IsSignedCodeFormat(code) {
		return false
	}
	cut := strings.LastIndexByte(code, '.')
	payload, signature := code[:cut], code[cut+1:]
	if SignedCodeBase(code) != *self.DiscountCodeBase {
		return false
	}
	return hmac.Equal([]byte(signature), []byte(self.sign(payload)))
}

func IsSignedCodeFormat(code string) bool {
	return code != "" && len(strings.Split(code, ".")) == 3
}

func SignedCodeBase(code string) string {
	base, _, _ := strings.Cut(code, ".")
	return base
}

type DiscountCoupon struct {
	ID               uuid.UUID `json:"id"`
	DiscountPolicyID uuid.UUID `json:"discount_policy_id"`
	Code             string    `json:"code"`
	UsageLimit       int       `json:"usage_limit"`
	UsedCount        int       `json:"used_count"`
}

func NewDiscountCoupon(policyId uuid.UUID, code string, usageLimit int) DiscountCoupon {
	if code == "" {
		code = NewCouponCode(6)
	}
	return DiscountCoupon{
		DiscountPolicyID: policyId,
		Code:             code,
		UsageLimit:       usageLimit,
	}
}

func (self DiscountCoupon) Available() int {
	return self.UsageLimit - self.UsedCount
}
