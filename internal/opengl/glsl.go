package opengl

// Shared GLSL chunks. Programs are assembled by concatenation; every
// assembled source starts with glslVersion and ends with "\x00".

const glslVersion = `
#version 410 core
`

// meshVertSrc transforms mesh vertices to world and clip space. Matrices
// arrive transposed (row-vector on the CPU), so the usual column-vector
// products apply here.
const meshVertSrc = glslVersion + `
layout(location = 0) in vec3 inPosition;
layout(location = 1) in vec3 inNormal;
layout(location = 2) in vec2 inUV;
layout(location = 3) in vec4 inColor;
layout(location = 4) in vec3 inTangent;

uniform mat4 u_model;
uniform mat4 u_viewprojection;

out vec3 v_world_position;
out vec3 v_normal;
out vec2 v_uv;
out vec4 v_color;
out vec3 v_tangent;

void main() {
    vec4 world = u_model * vec4(inPosition, 1.0);
    v_world_position = world.xyz;
    v_normal  = mat3(u_model) * inNormal;
    v_tangent = mat3(u_model) * inTangent;
    v_uv      = inUV;
    v_color   = inColor;
    gl_Position = u_viewprojection * world;
}
` + "\x00"

// fullscreenVertSrc draws a fullscreen triangle via gl_VertexID (no VBO needed).
const fullscreenVertSrc = glslVersion + `
out vec2 fragUV;
void main() {
    const vec2 pos[3] = vec2[3](
        vec2(-1.0, -1.0),
        vec2( 3.0, -1.0),
        vec2(-1.0,  3.0)
    );
    gl_Position = vec4(pos[gl_VertexID], 0.0, 1.0);
    fragUV      = pos[gl_VertexID] * 0.5 + 0.5;
}
` + "\x00"

// surfaceGLSL samples the material of a mesh fragment.
// Texture units: color 0, emissive 1, metallic-roughness 2, normal 3.
const surfaceGLSL = `
in vec3 v_world_position;
in vec3 v_normal;
in vec2 v_uv;
in vec4 v_color;
in vec3 v_tangent;

uniform vec4      u_color;
uniform sampler2D u_texture;
uniform sampler2D u_texture_emissive;
uniform sampler2D u_texture_occlusion; // R occlusion, G roughness, B metallic
uniform sampler2D u_texture_normal;
uniform bool      u_have_occlusion_texture;
uniform bool      u_have_normal_texture;
uniform float     u_alpha_cutoff;
uniform vec3      u_emissive_factor;
uniform float     u_roughness_factor;
uniform float     u_metallic_factor;

struct Surface {
    vec4  albedo;
    vec3  normal;
    vec3  emissive;
    float roughness;
    float metallic;
    float occlusion;
};

Surface readSurface() {
    Surface s;
    s.albedo = u_color * v_color * texture(u_texture, v_uv);
    if (s.albedo.a < u_alpha_cutoff) discard;

    vec3 N = normalize(v_normal);
    if (u_have_normal_texture && dot(v_tangent, v_tangent) > 1e-8) {
        vec3 T = normalize(v_tangent - N * dot(N, v_tangent));
        vec3 B = cross(N, T);
        N = normalize(mat3(T, B, N) * (texture(u_texture_normal, v_uv).rgb * 2.0 - 1.0));
    }
    s.normal = N;

    s.roughness = u_roughness_factor;
    s.metallic  = u_metallic_factor;
    s.occlusion = 1.0;
    if (u_have_occlusion_texture) {
        vec3 orm = texture(u_texture_occlusion, v_uv).rgb;
        s.occlusion  = orm.r;
        s.roughness *= orm.g;
        s.metallic  *= orm.b;
    }
    s.roughness = clamp(s.roughness, 0.04, 1.0);
    s.emissive  = u_emissive_factor * texture(u_texture_emissive, v_uv).rgb;
    return s;
}
`

// lightingGLSL holds the Lambert/Blinn-Phong lobe and the analytic light
// model. Light types: 0 directional, 1 spot, 2 point.
const lightingGLSL = `
const float PI = 3.14159265359;

// blinnExponent maps roughness onto a Blinn-Phong exponent, the inverse of
// scene.RoughnessFromShininess.
float blinnExponent(float roughness) {
    return clamp(2.0 / (roughness * roughness) - 2.0, 1.0, 2048.0);
}

// evalLight is Lambert diffuse plus a roughness-driven Blinn-Phong
// highlight. L = unit vector toward light, rad = light radiance.
vec3 evalLight(vec3 N, vec3 V, vec3 L, vec3 rad, vec3 albedo, float metallic, float roughness) {
    float NdL = max(dot(N, L), 0.0);
    if (NdL <= 0.0) return vec3(0.0);

    vec3  diffuse = albedo * (1.0 - metallic);
    vec3  H       = normalize(V + L);
    float n       = blinnExponent(roughness);
    vec3  specCol = mix(vec3(0.04), albedo, metallic);
    vec3  spec    = specCol * pow(max(dot(N, H), 0.0), n) * (n + 8.0) / (8.0 * PI);

    return (diffuse + spec) * rad * NdL;
}

// lightRadiance returns the radiance reaching world from one light and the
// direction towards it. cone = (angle, exponent, cos(angle)).
vec3 lightRadiance(int type, vec3 lpos, vec3 color, vec3 front, vec3 cone,
                   vec3 lvec, float maxdist, vec3 world, out vec3 L) {
    if (type == 0) {
        L = normalize(lvec);
        return color;
    }
    vec3  toLight = lpos - world;
    float dist    = length(toLight);
    L = toLight / max(dist, 1e-4);
    float range = max(maxdist, 0.001);
    float atten = clamp(1.0 - (dist * dist) / (range * range), 0.0, 1.0);
    atten *= atten;
    if (type == 1) {
        float cosAngle = dot(-L, normalize(front));
        if (cosAngle < cone.z) return vec3(0.0);
        atten *= pow(cosAngle, cone.y);
    }
    return color * atten;
}

// shadowFactor is 1 when lit, 0 when fully occluded. Points outside the
// light's view are lit.
float shadowFactor(sampler2DShadow shadowmap, mat4 vp, float bias, vec3 world) {
    vec4 proj = vp * vec4(world, 1.0);
    vec3 p = proj.xyz / proj.w * 0.5 + 0.5;
    if (p.x < 0.0 || p.x > 1.0 || p.y < 0.0 || p.y > 1.0 || p.z > 1.0) return 1.0;
    return texture(shadowmap, vec3(p.xy, p.z - bias));
}
`

// singleLightGLSL is the uniform block of one light, used by the
// multi-pass forward program and the deferred programs.
// The shadow map is bound to unit 8.
const singleLightGLSL = `
uniform int             u_light_type;
uniform vec3            u_light_position;
uniform vec3            u_light_color;
uniform vec3            u_light_front;
uniform vec3            u_light_cone;
uniform vec3            u_light_vector;
uniform float           u_light_max_distance;
uniform int             u_light_cast_shadows;
uniform float           u_light_shadow_bias;
uniform mat4            u_light_shadowmap_vp;
uniform sampler2DShadow u_light_shadowmap;

vec3 shadeLight(vec3 world, vec3 N, vec3 V, vec3 albedo, float metallic, float roughness) {
    vec3 L;
    vec3 rad = lightRadiance(u_light_type, u_light_position, u_light_color, u_light_front,
                             u_light_cone, u_light_vector, u_light_max_distance, world, L);
    if (u_light_cast_shadows != 0)
        rad *= shadowFactor(u_light_shadowmap, u_light_shadowmap_vp, u_light_shadow_bias, world);
    return evalLight(N, V, L, rad, albedo, metallic, roughness);
}
`

// reconstructGLSL recovers the world position behind a screen pixel.
const reconstructGLSL = `
uniform mat4 u_inverse_viewprojection;
uniform vec2 u_iRes;

vec3 worldFromDepth(vec2 uv, float depth) {
    vec4 clip = vec4(uv * 2.0 - 1.0, depth * 2.0 - 1.0, 1.0);
    vec4 world = u_inverse_viewprojection * clip;
    return world.xyz / world.w;
}
`

// shGLSL evaluates the nine-coefficient irradiance stored per probe.
const shGLSL = `
const float SH_BAND[9] = float[9](1.0, 0.666667, 0.666667, 0.666667, 0.25, 0.25, 0.25, 0.25, 0.25);

void shBasis(vec3 d, out float b[9]) {
    b[0] = 0.282095;
    b[1] = 0.488603 * d.y;
    b[2] = 0.488603 * d.z;
    b[3] = 0.488603 * d.x;
    b[4] = 1.092548 * d.x * d.y;
    b[5] = 1.092548 * d.y * d.z;
    b[6] = 0.315392 * (3.0 * d.z * d.z - 1.0);
    b[7] = 1.092548 * d.x * d.z;
    b[8] = 0.546274 * (d.x * d.x - d.y * d.y);
}
`
