package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestClinicsMigrationContainsSchemas(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_clinics_table.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no clinics migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS clinics",
		"whatsapp_instance TEXT",
		"subscription_active BOOLEAN NOT NULL DEFAULT FALSE",
		"specialties TEXT[]",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestChatMessagesMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_chat_messages_table.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no chat messages migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TYPE message_type_enum AS ENUM",
		"CREATE TABLE IF NOT EXISTS chat_messages",
		"FOREIGN KEY (lead_id) REFERENCES leads(id) ON DELETE CASCADE",
		"message_type message_type_enum NOT NULL DEFAULT 'conversation'",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
