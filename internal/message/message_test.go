package message

import (
	"reflect"
	"testing"
)

func TestEntry(t *testing.T) {
	msg := Entry[Telegram]{
		ID:     "1234567890-0",
		Stream: "dsmr-telegrams",
		Body:   Telegram{"power_delivered": "0.412"},
	}

	if msg.ID != "1234567890-0" {
		t.Errorf("expected ID 1234567890-0, got %s", msg.ID)
	}
	if msg.Stream != "dsmr-telegrams" {
		t.Errorf("expected stream dsmr-telegrams, got %s", msg.Stream)
	}
	if msg.Body["power_delivered"] != "0.412" {
		t.Errorf("expected power_delivered 0.412, got %s", msg.Body["power_delivered"])
	}
}

func TestBatch(t *testing.T) {
	batch := Batch[Telegram]{
		Items: []Entry[Telegram]{
			{ID: "msg1", Stream: "dsmr-telegrams", Body: Telegram{}},
			{ID: "msg2", Stream: "dsmr-telegrams", Body: Telegram{}},
		},
	}

	if batch.Len() != 2 {
		t.Errorf("expected 2 items, got %d", batch.Len())
	}
	if (Batch[Telegram]{}).Len() != 0 {
		t.Error("expected empty batch to have length 0")
	}
}

func TestTelegramKeys(t *testing.T) {
	tests := []struct {
		name string
		tg   Telegram
		want []string
	}{
		{"empty", Telegram{}, []string{}},
		{"sorted", Telegram{"voltage_l1": "230.0", TimestampField: "240101120000W", "energy_delivered_tariff1": "1.000"},
			[]string{"energy_delivered_tariff1", TimestampField, "voltage_l1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tg.Keys(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Keys() = %v; want %v", got, tt.want)
			}
		})
	}
}
