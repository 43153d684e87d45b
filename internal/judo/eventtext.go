package judo

import (
	"strconv"
	"strings"
)

// The appliance reports events as bare numeric codes; the display texts
// live in the official apps, not in the firmware. The tables below
// reproduce the manufacturer's German texts per unit type. Some texts
// template trailing composite fields into the message (software
// versions, waterstop limits, cartridge metadata).

type eventFormatter func(ev Event) string

func staticText(text string) eventFormatter {
	return func(Event) string { return text }
}

// lastField returns the final composite field, "" when absent.
func lastField(ev Event) string {
	if len(ev.Fields) == 0 {
		return ""
	}
	return ev.Fields[len(ev.Fields)-1]
}

// fieldFromEnd returns the nth field counting from the end (1 = last).
func fieldFromEnd(ev Event, n int) string {
	if len(ev.Fields) < n {
		return ""
	}
	return ev.Fields[len(ev.Fields)-n]
}

var softenerEventTexts = map[int]eventFormatter{
	1:  staticText("Störung! Regenerationsantrieb defekt."),
	2:  staticText("Störung! Solestand im Salzbehälter zu hoch."),
	3:  staticText("Störung! Fehlfunktion Füllventil."),
	4:  staticText("Störung! Wasserstoppantrieb defekt."),
	16: staticText("Resthärte korrigiert"),
	17: staticText("Na Grenzwert überschritten."),
	40: func(ev Event) string {
		return "Wasserstopp geschlossen, maximal zulässige Entnahmezeit " + lastField(ev) + " Minuten wurde überschritten."
	},
	41: func(ev Event) string {
		return "Wasserstopp geschlossen, maximal zulässiger Durchfluss " + lastField(ev) + "l/h wurde überschritten."
	},
	42: func(ev Event) string {
		return "Wasserstopp geschlossen, maximal zulässige Wassermenge " + lastField(ev) + "l wurde überschritten."
	},
	43: staticText("Wasserstopp im Urlaubsmodus"),
	44: staticText("Wasserstopp geschlossen, Leckagesensor meldet Leckage."),
	45: staticText("Wasserstopp manuell geschlossen"),
	50: staticText("Wasserstopp im Sleepmodus"),
	51: staticText("Start Aktivierung"),
	60: staticText("In sechs Wochen Wartung fällig"),
	61: staticText("Wartung ist fällig"),
	70: staticText("Reichweite der Salzmenge ist gering"),
	71: staticText("Achtung Salzmangel!"),
	80: staticText("Software Update installiert"),
	81: func(ev Event) string {
		return "Online-Softwareaktualisierung durchgeführt. Version " + lastField(ev) + " installiert."
	},
	90: staticText("Störung! Verbindung zur El. Steuerung fehlerhaft."),
}

var dosingEventTexts = map[int]eventFormatter{
	1:  staticText("Störung! Der Pumpenantrieb ist defekt."),
	2:  staticText("Störung! Die Minerallösungserkennung ist defekt."),
	3:  staticText("Der Minerallösungsbehälter ist leer!"),
	15: staticText("Der Minerallösungsvorrat ist gering."),
	16: staticText("Die registrierte Reichweite des Minerallösungsbehälters ist überschritten"),
	17: staticText("Das Mindesthaltbarkeitsdatum der Minerallösung ist überschritten."),
	18: func(ev Event) string {
		size := ""
		if millilitres, err := strconv.ParseFloat(fieldFromEnd(ev, 1), 64); err == nil {
			size = strconv.FormatFloat(millilitres/1000.0, 'f', -1, 64)
		}
		return "Minerallösungsbehälter gewechselt. Minerallösung Typ: " +
			strings.ToUpper(fieldFromEnd(ev, 2)) + " Gebindegröße: " + size + "l"
	},
	30: staticText("Die RFID Daten des Minerallösungsbehälters sind nicht lesbar"),
	60: staticText("In 6 Wochen Wartung fällig."),
	61: staticText("Wartung ist fällig"),
	62: staticText("Wartungsvorwarnung quittiert."),
	63: staticText("Wartungsauforderung quittiert."),
	80: func(ev Event) string {
		return "Softwareaktualisierung durchgeführt. Version " + lastField(ev) + " installiert."
	},
	81: func(ev Event) string {
		return "Online-Softwareaktualisierung durchgeführt. Version " + lastField(ev) + " installiert."
	},
	90: staticText("Störung! Verbindung zur el. Steuerung fehlerhaft."),
	100: func(ev Event) string {
		return "Wartung durchgeführt Wartungsvertragsnummer " + fieldFromEnd(ev, 3)
	},
}

// ResolveEventText maps an event to its display text.
//
// Dosing units have no sensible fallback, so unknown codes resolve to
// the empty string; softeners fall back to the bare numeric code.
func ResolveEventText(model Model, ev Event) string {
	if model == ModelIDos {
		if format, ok := dosingEventTexts[ev.Code]; ok {
			return format(ev)
		}
		return ""
	}

	if format, ok := softenerEventTexts[ev.Code]; ok {
		return format(ev)
	}
	return strconv.Itoa(ev.Code)
}
