package services

import (
	"encoding/json"
	"log"

	certModels "certmint/models/cert"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LogAudit appends one entry to the audit trail. The trail is the durable
// record of every state transition, so failures are logged loudly but never
// propagated into the calling flow.
func LogAudit(db *gorm.DB, actorID *uint, action, entity, entityID string, payload interface{}) {
	var body datatypes.JSON
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			log.Printf("[AUDIT] Failed to marshal payload for %s: %v", action, err)
		} else {
			body = datatypes.JSON(raw)
		}
	}

	entry := certModels.AuditEntry{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Payload:  body,
	}
	if err := db.Create(&entry).Error; err != nil {
		log.Printf("[AUDIT] Failed to write %s for %s/%s: %v", action, entity, entityID, err)
	}
}
