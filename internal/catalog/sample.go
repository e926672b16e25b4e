package catalog

func ptrFloat(v float64) *float64 { return &v }

func ptrString(v string) *string { return &v }

func ptrHealth(v RawHealth) *RawHealth { return &v }

// SampleSource is the development catalog used when neither CATALOG_URL nor
// DATABASE_URL is configured. Some records deliberately omit fields.
func SampleSource() StaticSource {
	return StaticSource{
		{ID: 1, Name: "Cocody-Angre-01", Location: ptrString("Cocody"), Health: ptrHealth("ok"), Capacity: ptrFloat(80), Latitude: ptrFloat(5.392), Longitude: ptrFloat(-3.973), MAC: "02:1A:2B:3C:4D:01", IP: "10.10.0.1"},
		{ID: 2, Name: "Cocody-Riviera-02", Location: ptrString("Cocody"), Health: ptrHealth("ok"), Capacity: ptrFloat(95), IP: "10.10.0.2"},
		{ID: 3, Name: "Cocody-Deux-Plateaux", Location: ptrString("Cocody"), Health: ptrHealth("down"), Capacity: ptrFloat(100), IP: "10.10.0.3"},
		{ID: 4, Name: "Yopougon-Siporex", Location: ptrString("Yopougon"), Online: ptrHealth("true"), IP: "10.20.0.1"},
		{ID: 5, Name: "Yopougon-Selmer", Location: ptrString("Yopougon"), Health: ptrHealth("ok"), Capacity: ptrFloat(60), IP: "10.20.0.2"},
		{ID: 6, Name: "Plateau-Centre", Location: ptrString("Plateau"), Health: ptrHealth("ok"), Capacity: ptrFloat(40), MAC: "02:1A:2B:3C:4D:06"},
		{ID: 7, Name: "Kiosque-Gare", Health: ptrHealth("unknown")},
	}
}
