package license

import (
	"smallbiznis-license/pkg/i18n"

	"golang.org/x/text/language"
)

const (
	msgInvalidKey          = "Invalid license key"
	msgDeactivated         = "License deactivated"
	msgExpired             = "License expired on %s"
	msgOtherMachine        = "This license is already activated on another machine"
	msgActivated           = "License activated successfully"
	msgKeyMachineRequired  = "License key and machine ID are required"
	msgNameExpiryRequired  = "Client name and expiration date are required"
	msgNotFound            = "License not found"
	msgNotFoundForMachine  = "License not found for this machine"
	msgValid               = "License valid"
	msgMachineReset        = "Machine binding reset"
	msgReactivated         = "License reactivated"
	msgInvalidExpiryFormat = "Expiration date must use the YYYY-MM-DD format"
)

func init() {
	i18n.Register(language.French, map[string]string{
		msgInvalidKey:          "Clé de licence invalide",
		msgDeactivated:         "Licence désactivée",
		msgExpired:             "Licence expirée le %s",
		msgOtherMachine:        "Cette licence est déjà activée sur une autre machine",
		msgActivated:           "Licence activée avec succès",
		msgKeyMachineRequired:  "Clé de licence et identifiant machine requis",
		msgNameExpiryRequired:  "Nom du client et date d'expiration requis",
		msgNotFound:            "Licence non trouvée",
		msgNotFoundForMachine:  "Licence non trouvée pour cette machine",
		msgValid:               "Licence valide",
		msgMachineReset:        "Liaison machine réinitialisée",
		msgReactivated:         "Licence réactivée",
		msgInvalidExpiryFormat: "La date d'expiration doit être au format AAAA-MM-JJ",
	})
}
