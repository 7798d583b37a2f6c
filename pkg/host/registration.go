package host

// Permissions is the capability set exposed to the creative at iframe
// creation. All capabilities are disabled.
type Permissions struct {
	ExpandByOverlay bool `json:"expandByOverlay"`
	ExpandByPush    bool `json:"expandByPush"`
	ReadCookie      bool `json:"readCookie"`
	WriteCookie     bool `json:"writeCookie"`
}

// SharedMetadata describes the host implementation to the creative.
type SharedMetadata struct {
	Version        string `json:"sf_ver"`
	CookiesEnabled bool   `json:"ck_on"`
	PluginVersion  string `json:"flash_ver"`
}

// Metadata wraps the shared metadata block.
type Metadata struct {
	Shared SharedMetadata `json:"shared"`
}

// RegistrationAttributes is the attribute block exposed to the creative at
// iframe-creation time. Produced here, consumed by the external slot
// machinery that writes the iframe element.
type RegistrationAttributes struct {
	UID                    uint32      `json:"uid"`
	HostPeerName           string      `json:"hostPeerName"`
	InitialGeometry        string      `json:"initialGeometry"`
	Permissions            Permissions `json:"permissions"`
	Metadata               Metadata    `json:"metadata"`
	ReportCreativeGeometry bool        `json:"reportCreativeGeometry"`
	Sentinel               string      `json:"sentinel"`
}

// RegistrationAttributes builds the creative-facing attribute block for this
// session. The initial geometry reflects the latest cached snapshot, or an
// empty object before the first observation.
func (s *Session) RegistrationAttributes() *RegistrationAttributes {
	geomText := "{}"
	if geom, ok := s.CurrentGeometry(); ok {
		if text, err := geom.Serialize(); err == nil {
			geomText = text
		} else {
			s.logger.Error("geometry serialize failed", "error", err)
		}
	}

	return &RegistrationAttributes{
		UID:             s.uid,
		HostPeerName:    s.cfg.HostOrigin,
		InitialGeometry: geomText,
		Permissions:     Permissions{}, // all capabilities disabled
		Metadata: Metadata{
			Shared: SharedMetadata{
				Version:        s.cfg.Version,
				CookiesEnabled: s.cfg.CookiesEnabled,
				PluginVersion:  s.cfg.PluginVersion,
			},
		},
		ReportCreativeGeometry: s.cfg.FluidReporting,
		Sentinel:               s.slotID,
	}
}
