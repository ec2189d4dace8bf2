package exporter

import (
	"os"

	"github.com/VladMinzatu/objlocate/internal/collector"
	"github.com/VladMinzatu/objlocate/internal/locator"
	v1 "go.opentelemetry.io/proto/otlp/common/v1"
	profilespb "go.opentelemetry.io/proto/otlp/profiles/v1development"
	resourceV1 "go.opentelemetry.io/proto/otlp/resource/v1"
	"google.golang.org/protobuf/proto"
)

type NowFunc func() uint64 // produces unix nsec

func BuildOtlpProfile(samples []collector.Sample, now NowFunc) *profilespb.ProfilesData {
	nowNsec := now()
	stringTable := []string{""}
	mappingTable := []*profilespb.Mapping{{}}
	locationTable := []*profilespb.Location{{}}
	stackTable := []*profilespb.Stack{{}}

	mappingIdx := map[string]int32{}
	locationIdx := map[locator.ResolvedFrame]int32{}
	profileSamples := make([]*profilespb.Sample, 0, len(samples))

	sampleType := &profilespb.ValueType{
		TypeStrindex: strIndex(&stringTable, "samples"),
		UnitStrindex: strIndex(&stringTable, "count"),
	}

	mappingFor := func(path string) int32 {
		if idx, ok := mappingIdx[path]; ok {
			return idx
		}
		mappingTable = append(mappingTable, &profilespb.Mapping{
			FilenameStrindex: strIndex(&stringTable, path),
		})
		idx := int32(len(mappingTable) - 1)
		mappingIdx[path] = idx
		return idx
	}

	locationFor := func(frame locator.ResolvedFrame) int32 {
		if idx, ok := locationIdx[frame]; ok {
			return idx
		}
		loc := &profilespb.Location{Address: uint64(frame.RawAddress)}
		if frame.Resolved() {
			loc.Address = uint64(frame.ObjectAddress)
			loc.MappingIndex = mappingFor(frame.ObjectPath)
		}
		locationTable = append(locationTable, loc)
		idx := int32(len(locationTable) - 1)
		locationIdx[frame] = idx
		return idx
	}

	for _, s := range samples {
		if len(s.Frames) == 0 {
			continue
		}
		locIndices := make([]int32, 0, len(s.Frames))
		for _, f := range s.Frames {
			locIndices = append(locIndices, locationFor(f))
		}
		stackTable = append(stackTable, &profilespb.Stack{LocationIndices: locIndices})

		pbSample := &profilespb.Sample{
			StackIndex:         int32(len(stackTable) - 1),
			Values:             []int64{int64(s.Count)},
			AttributeIndices:   []int32{},
			LinkIndex:          0,
			TimestampsUnixNano: []uint64{uint64(s.Timestamp.UnixNano())},
		}
		profileSamples = append(profileSamples, pbSample)
	}

	profile := &profilespb.Profile{
		TimeUnixNano: nowNsec,
		DurationNano: uint64(0),
		SampleType:   sampleType,
		Samples:      profileSamples,
	}

	resourceProfiles := &profilespb.ResourceProfiles{
		Resource: &resourceV1.Resource{},
		ScopeProfiles: []*profilespb.ScopeProfiles{
			{
				Scope: &v1.InstrumentationScope{
					Name:    "objlocate",
					Version: "v1",
				},
				Profiles: []*profilespb.Profile{profile},
			},
		},
	}

	dictionary := &profilespb.ProfilesDictionary{
		MappingTable:  mappingTable,
		LocationTable: locationTable,
		FunctionTable: []*profilespb.Function{{}},
		StackTable:    stackTable,
		StringTable:   stringTable,
	}

	return &profilespb.ProfilesData{
		ResourceProfiles: []*profilespb.ResourceProfiles{resourceProfiles},
		Dictionary:       dictionary,
	}
}

func WriteOtlpProfile(data *profilespb.ProfilesData, filename string) error {
	b, err := proto.Marshal(data)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, b, 0o644)
}

func strIndex(table *[]string, s string) int32 {
	for i, v := range *table {
		if v == s {
			return int32(i)
		}
	}
	*table = append(*table, s)
	return int32(len(*table) - 1)
}
