package models

import "testing"

func TestContactInfoRoundTrip(t *testing.T) {
	var c Contact
	c.SetContactInfo(ContactDetails{Email: "jane@example.com", Phone: "+1 555 0100"})

	got := c.GetContactInfo()
	if got["email"] != "jane@example.com" {
		t.Errorf("email = %q", got["email"])
	}
	if got["phone"] != "+1 555 0100" {
		t.Errorf("phone = %q", got["phone"])
	}
	if _, ok := got["address"]; ok {
		t.Error("empty address should be omitted")
	}
}

func TestGetContactInfoMalformed(t *testing.T) {
	c := Contact{ContactInfo: "{not json"}
	if got := c.GetContactInfo(); len(got) != 0 {
		t.Errorf("malformed blob should yield empty map, got %v", got)
	}
	c = Contact{}
	if got := c.GetContactInfo(); len(got) != 0 {
		t.Errorf("empty blob should yield empty map, got %v", got)
	}
}

func TestCountsAsSent(t *testing.T) {
	cases := map[ContactStatus]bool{
		StatusFound:    false,
		StatusSent:     true,
		StatusPending:  false,
		StatusAccepted: true,
		StatusDeclined: true,
	}
	for status, want := range cases {
		if got := status.CountsAsSent(); got != want {
			t.Errorf("%s.CountsAsSent() = %v, want %v", status, got, want)
		}
	}
}

func TestCampaignValidate(t *testing.T) {
	ok := Campaign{Name: "x", DailyLimit: 10, MessageTemplate: "Hi {name}!"}
	if err := ok.Validate(); err != nil {
		t.Errorf("valid campaign rejected: %v", err)
	}
	noNote := Campaign{Name: "x", DailyLimit: 10}
	if err := noNote.Validate(); err != nil {
		t.Errorf("empty template should be allowed: %v", err)
	}

	if err := (&Campaign{DailyLimit: 10}).Validate(); err == nil {
		t.Error("missing name should fail")
	}
	if err := (&Campaign{Name: "x"}).Validate(); err == nil {
		t.Error("zero daily limit should fail")
	}
	if err := (&Campaign{Name: "x", DailyLimit: 10, MessageTemplate: "no placeholder"}).Validate(); err == nil {
		t.Error("template without {name} should fail")
	}
}

func TestCampaignEffectiveFields(t *testing.T) {
	c := Campaign{Location: "old-town", Industry: "43"}
	if got := c.EffectiveGeoURN(); got != "old-town" {
		t.Errorf("EffectiveGeoURN fallback = %q", got)
	}
	if got := c.EffectiveIndustryIDs(); got != "43" {
		t.Errorf("EffectiveIndustryIDs fallback = %q", got)
	}
	if got := c.EffectiveNetwork(); got != DefaultNetwork {
		t.Errorf("EffectiveNetwork default = %q", got)
	}

	c.GeoURN = "90000084"
	c.IndustryIDs = "4,6"
	c.Network = `["F"]`
	if got := c.EffectiveGeoURN(); got != "90000084" {
		t.Errorf("EffectiveGeoURN = %q", got)
	}
	if got := c.EffectiveIndustryIDs(); got != "4,6" {
		t.Errorf("EffectiveIndustryIDs = %q", got)
	}
	if got := c.EffectiveNetwork(); got != `["F"]` {
		t.Errorf("EffectiveNetwork = %q", got)
	}
}
