package tracking

// CarrierCode is the tracking provider's short machine code for a shipping
// company, distinct from its display name.
type CarrierCode string

// Empty reports whether the code is the unknown-carrier sentinel
func (c CarrierCode) Empty() bool {
	return c == ""
}

// carrierCodes maps carrier display names to provider codes. The codes follow
// the provider's published carrier list; unknown names resolve to the empty
// code and the sync request is sent without carrier disambiguation.
var carrierCodes = map[string]CarrierCode{
	"顺丰速运":   "shunfeng",
	"圆通速递":   "yuantong",
	"中通快递":   "zhongtong",
	"申通快递":   "shentong",
	"韵达速递":   "yunda",
	"京东物流":   "jd",
	"EMS":    "ems",
	"邮政快递包裹": "youzhengguonei",
	"极兔速递":   "jtexpress",
	"德邦快递":   "debangkuaidi",
	"宅急送":    "zhaijisong",
	"天天快递":   "tiantian",
}

// ResolveCarrier maps a carrier display name to the provider's carrier code.
// The lookup is total: unknown names return the empty code, never an error.
func ResolveCarrier(displayName string) CarrierCode {
	return carrierCodes[displayName]
}

// KnownCarriers returns the display names in the resolution table
func KnownCarriers() []string {
	names := make([]string, 0, len(carrierCodes))
	for name := range carrierCodes {
		names = append(names, name)
	}
	return names
}
