package cli

const (
	KindDevice    = "Device"
	KindFleet     = "Fleet"
	KindFirmware  = "Firmware"
	KindUser      = "User"
	KindWorkspace = "Workspace"
)

func ValidateResourceKind(kind string) bool {
	switch kind {
	case KindDevice, KindFleet, KindFirmware, KindUser, KindWorkspace:
		return true
	default:
		return false
	}
}
