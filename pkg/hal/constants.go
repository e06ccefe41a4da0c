package hal

// Property scopes.
const (
	PropertyScopeGlobal PropertyScope = 'g'<<24 | 'l'<<16 | 'o'<<8 | 'b'
	PropertyScopeInput  PropertyScope = 'i'<<24 | 'n'<<16 | 'p'<<8 | 't'
	PropertyScopeOutput PropertyScope = 'o'<<24 | 'u'<<16 | 't'<<8 | 'p'
)

// ElementMain is the main element of every object.
const ElementMain Element = 0

// System object properties.
const (
	SelectorDevices             Selector = 'd'<<24 | 'e'<<16 | 'v'<<8 | '#'
	SelectorDefaultInputDevice  Selector = 'd'<<24 | 'I'<<16 | 'n'<<8 | ' '
	SelectorDefaultOutputDevice Selector = 'd'<<24 | 'O'<<16 | 'u'<<8 | 't'
	SelectorPlugInForBundleID   Selector = 'p'<<24 | 'i'<<16 | 'b'<<8 | 'i'
)

// Device properties.
const (
	SelectorDeviceUID           Selector = 'u'<<24 | 'i'<<16 | 'd'<<8 | ' '
	SelectorName                Selector = 'l'<<24 | 'n'<<16 | 'a'<<8 | 'm'
	SelectorDataSource          Selector = 's'<<24 | 's'<<16 | 'r'<<8 | 'c'
	SelectorDataSourceNameForID Selector = 'l'<<24 | 's'<<16 | 'c'<<8 | 'n'
	SelectorStreamConfiguration Selector = 's'<<24 | 'l'<<16 | 'a'<<8 | 'y'
	SelectorBufferFrameSize     Selector = 'f'<<24 | 's'<<16 | 'i'<<8 | 'z'
)

// Plug-in properties.
const (
	SelectorCreateAggregateDevice  Selector = 'c'<<24 | 'a'<<16 | 'g'<<8 | 'g'
	SelectorDestroyAggregateDevice Selector = 'd'<<24 | 'a'<<16 | 'g'<<8 | 'g'
)

// Output unit properties.
const (
	SelectorUnitCurrentDevice Selector = 2000
	SelectorUnitEnableIO      Selector = 2003
	SelectorUnitHasIO         Selector = 2006
)

// Output unit elements (buses).
const (
	ElementOutputBus Element = 0
	ElementInputBus  Element = 1
)

// CoreAudioBundleID is the bundle whose plug-in creates aggregate devices.
const CoreAudioBundleID = "com.apple.audio.CoreAudio"

// Keys of the aggregate device description.
const (
	AggregateNameKey          = "name"
	AggregateUIDKey           = "uid"
	AggregatePrivateKey       = "private"
	AggregateStackedKey       = "stacked"
	AggregateSubDeviceListKey = "subdevices"
	SubDeviceUIDKey           = "uid"
)
