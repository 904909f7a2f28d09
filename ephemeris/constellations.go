package ephemeris

// NewGPSEphemeris returns e configured with GPS-family constants, ready
// for Position evaluation. e's constants field is set in place so the
// RINEX decoder can build the rest of the struct literal directly.
func NewGPSEphemeris(e *KeplerEphemeris) *KeplerEphemeris {
	e.constants = gpsConstants
	return e
}

// NewQZSSEphemeris configures e with QZSS constants (identical to GPS).
func NewQZSSEphemeris(e *KeplerEphemeris) *KeplerEphemeris {
	e.constants = gpsConstants
	return e
}

// NewGalileoEphemeris configures e with Galileo constants.
func NewGalileoEphemeris(e *KeplerEphemeris) *KeplerEphemeris {
	e.constants = galConstants
	return e
}

// NewNavICEphemeris configures e with NavIC constants (shares GPS's GM and
// earth rotation rate).
func NewNavICEphemeris(e *KeplerEphemeris) *KeplerEphemeris {
	e.constants = gpsConstants
	return e
}

// IsHealthyGalileo applies Galileo's SISA/health-bitmask semantics: healthy
// requires all of the E1B/E5a/E5b data-validity and signal-health bits to
// be clear. RINEX stores this pre-decoded into a single health word whose
// zero value means healthy, same contract as the GPS-family default.
func IsHealthyGalileo(healthWord int) bool { return healthWord == 0 }
